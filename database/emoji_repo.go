package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// EmojiRepository persists custom and Unicode emoji.
type EmojiRepository struct {
	db *DB
}

// NewEmojiRepository creates an EmojiRepository.
func NewEmojiRepository(db *DB) *EmojiRepository {
	return &EmojiRepository{db: db}
}

// Insert upserts an emoji.
func (r *EmojiRepository) Insert(ctx context.Context, e *models.Emoji) error {
	query := `
    INSERT INTO emojis (id, name, url, animated)
    VALUES (?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        name = excluded.name,
        url = excluded.url,
        animated = excluded.animated
    WHERE emojis.name IS DISTINCT FROM excluded.name
       OR emojis.url IS DISTINCT FROM excluded.url
       OR emojis.animated IS DISTINCT FROM excluded.animated;`

	if _, err := r.db.exec(ctx, query, e.ID, e.Name, e.URL, e.Animated); err != nil {
		return fmt.Errorf("failed to upsert emoji %s: %w", e.ID, err)
	}
	return nil
}

// FindByID returns the emoji.
func (r *EmojiRepository) FindByID(ctx context.Context, id string) (*models.Emoji, error) {
	var (
		e   models.Emoji
		url sql.NullString
	)
	err := r.db.queryRow(ctx, `SELECT id, name, url, animated FROM emojis WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &url, &e.Animated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query emoji %s: %w", id, err)
	}
	e.URL = stringPtr(url)
	return &e, nil
}

// MessageEmojiRepository persists per-message emoji usage counts.
type MessageEmojiRepository struct {
	db *DB
}

// NewMessageEmojiRepository creates a MessageEmojiRepository.
func NewMessageEmojiRepository(db *DB) *MessageEmojiRepository {
	return &MessageEmojiRepository{db: db}
}

// Insert upserts the usage count of an emoji in a message.
func (r *MessageEmojiRepository) Insert(ctx context.Context, me *models.MessageEmoji) error {
	query := `
    INSERT INTO message_emojis (message_id, emoji_id, count)
    VALUES (?, ?, ?)
    ON CONFLICT (message_id, emoji_id) DO UPDATE SET
        count = excluded.count
    WHERE message_emojis.count IS DISTINCT FROM excluded.count;`

	if _, err := r.db.exec(ctx, query, me.MessageID, me.EmojiID, me.Count); err != nil {
		return fmt.Errorf("failed to upsert message emoji %s/%s: %w", me.MessageID, me.EmojiID, err)
	}
	return nil
}

// Find returns the usage count of emojiID in messageID.
func (r *MessageEmojiRepository) Find(ctx context.Context, messageID, emojiID string) (*models.MessageEmoji, error) {
	var me models.MessageEmoji
	query := `SELECT message_id, emoji_id, count FROM message_emojis WHERE message_id = ? AND emoji_id = ?`
	err := r.db.queryRow(ctx, query, messageID, emojiID).Scan(&me.MessageID, &me.EmojiID, &me.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query message emoji %s/%s: %w", messageID, emojiID, err)
	}
	return &me, nil
}
