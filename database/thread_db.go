package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// ThreadRepository persists threads of text and forum channels.
type ThreadRepository struct {
	db *DB
}

// NewThreadRepository creates a ThreadRepository.
func NewThreadRepository(db *DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Insert upserts a thread; renames and archive changes bump edited_at.
func (r *ThreadRepository) Insert(ctx context.Context, t *models.Thread) error {
	query := `
    INSERT INTO threads (id, channel_id, name, archived_at, created_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        name = excluded.name,
        archived_at = excluded.archived_at,
        edited_at = ?,
        deleted_at = NULL
    WHERE threads.name IS DISTINCT FROM excluded.name
       OR threads.archived_at IS DISTINCT FROM excluded.archived_at
       OR threads.deleted_at IS NOT NULL;`

	_, err := r.db.exec(ctx, query, t.ID, t.ChannelID, t.Name, dbTimePtr(t.ArchivedAt), dbTime(t.CreatedAt), r.db.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert thread %s: %w", t.ID, err)
	}
	return nil
}

// SoftDelete stamps deleted_at on the thread.
func (r *ThreadRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.exec(ctx, `UPDATE threads SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.db.stamp(), id)
	if err != nil {
		return fmt.Errorf("failed to soft delete thread %s: %w", id, err)
	}
	return nil
}

// FindByID returns the thread, soft-deleted or not.
func (r *ThreadRepository) FindByID(ctx context.Context, id string) (*models.Thread, error) {
	var (
		t                               models.Thread
		archivedAt, editedAt, deletedAt sql.NullTime
	)
	err := r.db.queryRow(ctx, `SELECT id, channel_id, name, archived_at, created_at, edited_at, deleted_at FROM threads WHERE id = ?`, id).
		Scan(&t.ID, &t.ChannelID, &t.Name, &archivedAt, &t.CreatedAt, &editedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query thread %s: %w", id, err)
	}

	t.ArchivedAt = timePtr(archivedAt)
	t.CreatedAt = t.CreatedAt.UTC()
	t.EditedAt = timePtr(editedAt)
	t.DeletedAt = timePtr(deletedAt)
	return &t, nil
}
