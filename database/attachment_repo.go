package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discord-archiver/models"
)

// AttachmentRepository persists message attachments.
type AttachmentRepository struct {
	db *DB
}

// NewAttachmentRepository creates an AttachmentRepository.
func NewAttachmentRepository(db *DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Insert stores an attachment once; attachments never change after upload.
func (r *AttachmentRepository) Insert(ctx context.Context, a *models.Attachment) error {
	query := `
    INSERT INTO attachments (id, message_id, filename, url)
    VALUES (?, ?, ?, ?)
    ON CONFLICT (id) DO NOTHING;`

	if _, err := r.db.exec(ctx, query, a.ID, a.MessageID, a.Filename, a.URL); err != nil {
		return fmt.Errorf("failed to insert attachment %s: %w", a.ID, err)
	}
	return nil
}

// FindByID returns the attachment.
func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*models.Attachment, error) {
	var a models.Attachment
	err := r.db.queryRow(ctx, `SELECT id, message_id, filename, url FROM attachments WHERE id = ?`, id).
		Scan(&a.ID, &a.MessageID, &a.Filename, &a.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query attachment %s: %w", id, err)
	}
	return &a, nil
}
