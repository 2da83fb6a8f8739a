package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// MessageRepository persists channel and thread messages.
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert upserts a message. Content is updated in place on edit; edited_at takes the
// platform's edit timestamp and falls back to now.
func (r *MessageRepository) Insert(ctx context.Context, m *models.Message) error {
	query := `
    INSERT INTO messages (id, guild_id, channel_id, thread_id, author_id, content, is_command, created_at, edited_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        content = excluded.content,
        is_command = excluded.is_command,
        edited_at = COALESCE(excluded.edited_at, ?)
    WHERE messages.content IS DISTINCT FROM excluded.content;`

	_, err := r.db.exec(ctx, query,
		m.ID,
		m.GuildID,
		m.ChannelID,
		m.ThreadID,
		m.AuthorID,
		m.Content,
		m.IsCommand,
		dbTime(m.CreatedAt),
		dbTimePtr(m.EditedAt),
		r.db.stamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message %s: %w", m.ID, err)
	}
	return nil
}

// SoftDelete stamps deleted_at on the message.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE messages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.db.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete message %s: %w", id, err)
	}
	return nil
}

// FindByID returns the message, soft-deleted or not.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var (
		m                   models.Message
		channelID, threadID sql.NullString
		editedAt, deletedAt sql.NullTime
	)
	query := `SELECT id, guild_id, channel_id, thread_id, author_id, content, is_command, created_at, edited_at, deleted_at
              FROM messages WHERE id = ?`
	err := r.db.queryRow(ctx, query, id).Scan(
		&m.ID, &m.GuildID, &channelID, &threadID, &m.AuthorID,
		&m.Content, &m.IsCommand, &m.CreatedAt, &editedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query message %s: %w", id, err)
	}

	m.ChannelID = stringPtr(channelID)
	m.ThreadID = stringPtr(threadID)
	m.CreatedAt = m.CreatedAt.UTC()
	m.EditedAt = timePtr(editedAt)
	m.DeletedAt = timePtr(deletedAt)
	return &m, nil
}

// CountByChannel returns the number of live messages stored for a channel or thread.
func (r *MessageRepository) CountByChannel(ctx context.Context, channelID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM messages WHERE (channel_id = ? OR thread_id = ?) AND deleted_at IS NULL`
	if err := r.db.queryRow(ctx, query, channelID, channelID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages of channel %s: %w", channelID, err)
	}
	return count, nil
}
