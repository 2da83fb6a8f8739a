package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// GuildRepository persists guilds.
type GuildRepository struct {
	db *DB
}

// NewGuildRepository creates a GuildRepository.
func NewGuildRepository(db *DB) *GuildRepository {
	return &GuildRepository{db: db}
}

// Insert upserts a guild. A rejoined guild loses its deleted_at stamp.
func (r *GuildRepository) Insert(ctx context.Context, g *models.Guild) error {
	query := `
    INSERT INTO guilds (id, name, icon_url, created_at)
    VALUES (?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        name = excluded.name,
        icon_url = excluded.icon_url,
        edited_at = ?,
        deleted_at = NULL
    WHERE guilds.name IS DISTINCT FROM excluded.name
       OR guilds.icon_url IS DISTINCT FROM excluded.icon_url
       OR guilds.deleted_at IS NOT NULL;`

	_, err := r.db.exec(ctx, query, g.ID, g.Name, g.IconURL, dbTime(g.CreatedAt), r.db.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert guild %s: %w", g.ID, err)
	}
	return nil
}

// SoftDelete marks the guild as left.
func (r *GuildRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE guilds SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.db.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete guild %s: %w", id, err)
	}
	return nil
}

// FindByID returns the guild, soft-deleted or not.
func (r *GuildRepository) FindByID(ctx context.Context, id string) (*models.Guild, error) {
	var (
		g                   models.Guild
		iconURL             sql.NullString
		editedAt, deletedAt sql.NullTime
	)
	err := r.db.queryRow(ctx, `SELECT id, name, icon_url, created_at, edited_at, deleted_at FROM guilds WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &iconURL, &g.CreatedAt, &editedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query guild %s: %w", id, err)
	}

	g.IconURL = stringPtr(iconURL)
	g.CreatedAt = g.CreatedAt.UTC()
	g.EditedAt = timePtr(editedAt)
	g.DeletedAt = timePtr(deletedAt)
	return &g, nil
}
