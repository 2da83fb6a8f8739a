package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// ChannelRepository persists text, news and forum channels.
type ChannelRepository struct {
	db *DB
}

// NewChannelRepository creates a ChannelRepository.
func NewChannelRepository(db *DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Insert upserts a channel.
func (r *ChannelRepository) Insert(ctx context.Context, c *models.Channel) error {
	query := `
    INSERT INTO channels (id, guild_id, category_id, name, type, created_at)
    VALUES (?, ?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        category_id = excluded.category_id,
        name = excluded.name,
        type = excluded.type,
        edited_at = ?,
        deleted_at = NULL
    WHERE channels.category_id IS DISTINCT FROM excluded.category_id
       OR channels.name IS DISTINCT FROM excluded.name
       OR channels.type IS DISTINCT FROM excluded.type
       OR channels.deleted_at IS NOT NULL;`

	_, err := r.db.exec(ctx, query, c.ID, c.GuildID, c.CategoryID, c.Name, c.Type, dbTime(c.CreatedAt), r.db.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert channel %s: %w", c.ID, err)
	}
	return nil
}

// SoftDelete stamps deleted_at on the channel.
func (r *ChannelRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE channels SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.db.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete channel %s: %w", id, err)
	}
	return nil
}

// FindByID returns the channel, soft-deleted or not.
func (r *ChannelRepository) FindByID(ctx context.Context, id string) (*models.Channel, error) {
	var (
		c                   models.Channel
		categoryID          sql.NullString
		editedAt, deletedAt sql.NullTime
	)
	err := r.db.queryRow(ctx, `SELECT id, guild_id, category_id, name, type, created_at, edited_at, deleted_at FROM channels WHERE id = ?`, id).
		Scan(&c.ID, &c.GuildID, &categoryID, &c.Name, &c.Type, &c.CreatedAt, &editedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query channel %s: %w", id, err)
	}

	c.CategoryID = stringPtr(categoryID)
	c.CreatedAt = c.CreatedAt.UTC()
	c.EditedAt = timePtr(editedAt)
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}
