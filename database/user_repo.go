package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"discord-archiver/models"
)

// UserRepository persists users and their display name history.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// MergeNames prepends the incoming names that are not yet known. The result never
// loses an entry of known.
func MergeNames(incoming, known []string) []string {
	merged := make([]string, 0, len(incoming)+len(known))
	for _, name := range incoming {
		if name == "" || slices.Contains(known, name) || slices.Contains(merged, name) {
			continue
		}
		merged = append(merged, name)
	}
	return append(merged, known...)
}

// Insert upserts a user, merging u.Names into the stored history.
func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	names := u.Names
	existing, err := r.FindByID(ctx, u.ID)
	switch {
	case err == nil:
		names = MergeNames(u.Names, existing.Names)
	case errors.Is(err, ErrNotFound):
		names = MergeNames(u.Names, nil)
	default:
		return err
	}

	namesJSON, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to marshal names of user %s: %w", u.ID, err)
	}

	query := `
    INSERT INTO users (id, names, avatar_url, is_bot, created_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (id) DO UPDATE SET
        names = excluded.names,
        avatar_url = excluded.avatar_url,
        is_bot = excluded.is_bot,
        edited_at = ?
    WHERE users.names IS DISTINCT FROM excluded.names
       OR users.avatar_url IS DISTINCT FROM excluded.avatar_url
       OR users.is_bot IS DISTINCT FROM excluded.is_bot;`

	_, err = r.db.exec(ctx, query, u.ID, string(namesJSON), u.AvatarURL, u.IsBot, dbTime(u.CreatedAt), r.db.stamp())
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
	}
	return nil
}

// FindByID returns the user with its full name history.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var (
		u         models.User
		namesJSON string
		avatarURL sql.NullString
		editedAt  sql.NullTime
	)
	err := r.db.queryRow(ctx, `SELECT id, names, avatar_url, is_bot, created_at, edited_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &namesJSON, &avatarURL, &u.IsBot, &u.CreatedAt, &editedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(namesJSON), &u.Names); err != nil {
		return nil, fmt.Errorf("failed to decode names of user %s: %w", id, err)
	}
	u.AvatarURL = stringPtr(avatarURL)
	u.CreatedAt = u.CreatedAt.UTC()
	u.EditedAt = timePtr(editedAt)
	return &u, nil
}
