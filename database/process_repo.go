package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"discord-archiver/models"
)

// ProcessRepository persists history checkpoints.
type ProcessRepository struct {
	db *DB
}

// NewProcessRepository creates a ProcessRepository.
func NewProcessRepository(db *DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

// Insert records the start of a window. Re-inserting an unfinished window refreshes its
// to_date; a finished window is never touched.
func (r *ProcessRepository) Insert(ctx context.Context, p *models.LoggerProcess) error {
	query := `
    INSERT INTO logger_processes (channel_id, from_date, to_date)
    VALUES (?, ?, ?)
    ON CONFLICT (channel_id, from_date) DO UPDATE SET
        to_date = excluded.to_date
    WHERE logger_processes.finished_at IS NULL
      AND logger_processes.to_date IS DISTINCT FROM excluded.to_date;`

	_, err := r.db.exec(ctx, query, p.ChannelID, dbTime(p.FromDate), dbTime(p.ToDate))
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint for channel %s: %w", p.ChannelID, err)
	}
	return nil
}

// FindLast returns the most recent window of a channel.
func (r *ProcessRepository) FindLast(ctx context.Context, channelID string) (*models.LoggerProcess, error) {
	var (
		p          models.LoggerProcess
		finishedAt sql.NullTime
	)
	query := `SELECT channel_id, from_date, to_date, finished_at FROM logger_processes
              WHERE channel_id = ? ORDER BY from_date DESC LIMIT 1`
	err := r.db.queryRow(ctx, query, channelID).Scan(&p.ChannelID, &p.FromDate, &p.ToDate, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query last checkpoint of channel %s: %w", channelID, err)
	}

	p.FromDate = p.FromDate.UTC()
	p.ToDate = p.ToDate.UTC()
	p.FinishedAt = timePtr(finishedAt)
	return &p, nil
}

// Finish stamps finished_at on the window starting at from. With exact set, the stored
// to_date must match as well. ErrNotFound means no unfinished window matched.
func (r *ProcessRepository) Finish(ctx context.Context, channelID string, from, to time.Time, exact bool) error {
	query := `UPDATE logger_processes SET finished_at = ?
              WHERE channel_id = ? AND from_date = ? AND finished_at IS NULL`
	args := []any{r.db.stamp(), channelID, dbTime(from)}
	if exact {
		query += " AND to_date = ?"
		args = append(args, dbTime(to))
	}

	res, err := r.db.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to finish checkpoint of channel %s: %w", channelID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for channel %s: %w", channelID, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindUpdatable returns the channels and threads whose latest window ends before
// staleBefore and that are not soft-deleted.
func (r *ProcessRepository) FindUpdatable(ctx context.Context, staleBefore time.Time) ([]string, error) {
	query := `
    SELECT p.channel_id FROM logger_processes p
    WHERE NOT EXISTS (SELECT 1 FROM channels c WHERE c.id = p.channel_id AND c.deleted_at IS NOT NULL)
      AND NOT EXISTS (SELECT 1 FROM threads t WHERE t.id = p.channel_id AND t.deleted_at IS NOT NULL)
    GROUP BY p.channel_id
    HAVING MAX(p.to_date) < ?
    ORDER BY p.channel_id;`

	rows, err := r.db.query(ctx, query, dbTime(staleBefore))
	if err != nil {
		return nil, fmt.Errorf("failed to query updatable checkpoints: %w", err)
	}
	defer rows.Close()

	var channelIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel ID: %w", err)
		}
		channelIDs = append(channelIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate updatable checkpoints: %w", err)
	}
	return channelIDs, nil
}
