package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// RoleRepository persists guild roles.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a RoleRepository.
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Insert upserts a role.
func (r *RoleRepository) Insert(ctx context.Context, role *models.Role) error {
	query := `
    INSERT INTO roles (id, guild_id, name, color, created_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        name = excluded.name,
        color = excluded.color,
        edited_at = ?,
        deleted_at = NULL
    WHERE roles.name IS DISTINCT FROM excluded.name
       OR roles.color IS DISTINCT FROM excluded.color
       OR roles.deleted_at IS NOT NULL;`

	_, err := r.db.exec(ctx, query, role.ID, role.GuildID, role.Name, role.Color, dbTime(role.CreatedAt), r.db.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert role %s: %w", role.ID, err)
	}
	return nil
}

// SoftDelete stamps deleted_at on the role.
func (r *RoleRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE roles SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.db.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete role %s: %w", id, err)
	}
	return nil
}

// FindByID returns the role, soft-deleted or not.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	var (
		role                models.Role
		editedAt, deletedAt sql.NullTime
	)
	err := r.db.queryRow(ctx, `SELECT id, guild_id, name, color, created_at, edited_at, deleted_at FROM roles WHERE id = ?`, id).
		Scan(&role.ID, &role.GuildID, &role.Name, &role.Color, &role.CreatedAt, &editedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query role %s: %w", id, err)
	}

	role.CreatedAt = role.CreatedAt.UTC()
	role.EditedAt = timePtr(editedAt)
	role.DeletedAt = timePtr(deletedAt)
	return &role, nil
}
