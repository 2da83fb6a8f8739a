package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// CategoryRepository persists channel categories.
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a CategoryRepository.
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Insert upserts a category, only touching the row when name or position changed.
func (r *CategoryRepository) Insert(ctx context.Context, c *models.Category) error {
	query := `
    INSERT INTO categories (id, guild_id, name, position, created_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        name = excluded.name,
        position = excluded.position,
        edited_at = ?,
        deleted_at = NULL
    WHERE categories.name IS DISTINCT FROM excluded.name
       OR categories.position IS DISTINCT FROM excluded.position
       OR categories.deleted_at IS NOT NULL;`

	_, err := r.db.exec(ctx, query, c.ID, c.GuildID, c.Name, c.Position, dbTime(c.CreatedAt), r.db.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
	}
	return nil
}

// SoftDelete stamps deleted_at on the category.
func (r *CategoryRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE categories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.db.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete category %s: %w", id, err)
	}
	return nil
}

// FindByID returns the category, soft-deleted or not.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	var (
		c                   models.Category
		editedAt, deletedAt sql.NullTime
	)
	err := r.db.queryRow(ctx, `SELECT id, guild_id, name, position, created_at, edited_at, deleted_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.GuildID, &c.Name, &c.Position, &c.CreatedAt, &editedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query category %s: %w", id, err)
	}

	c.CreatedAt = c.CreatedAt.UTC()
	c.EditedAt = timePtr(editedAt)
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}
