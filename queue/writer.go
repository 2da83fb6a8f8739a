// Package queue buffers the writes triggered by gateway events and applies them in
// bounded batches.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"discord-archiver/backup"
	"discord-archiver/database"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Job is one queued write. Delete jobs receive a nil run.
type Job func(ctx context.Context, run *backup.Run) error

// Limits bounds how many jobs of each queue a single flush applies.
type Limits struct {
	Inserts int
	Updates int
	Deletes int
}

// DefaultLimits are the per-flush batch sizes used when none are configured.
var DefaultLimits = Limits{Inserts: 1000, Updates: 2000, Deletes: 1000}

// Stats reports the outcome of one flush.
type Stats struct {
	Applied int
	Dropped int
}

type entry struct {
	name string
	job  Job
}

type batch struct {
	queue   *[]entry
	entries []entry
	run     func() *backup.Run
}

// Writer holds the insert, update and delete queues.
type Writer struct {
	mu      sync.Mutex
	inserts []entry
	updates []entry
	deletes []entry
	flushMu sync.Mutex

	limits  Limits
	logger  *zap.Logger
	backOff func() backoff.BackOff
}

// NewWriter creates a Writer. Zero limits fall back to DefaultLimits.
func NewWriter(limits Limits, logger *zap.Logger) *Writer {
	if limits.Inserts <= 0 {
		limits.Inserts = DefaultLimits.Inserts
	}
	if limits.Updates <= 0 {
		limits.Updates = DefaultLimits.Updates
	}
	if limits.Deletes <= 0 {
		limits.Deletes = DefaultLimits.Deletes
	}
	return &Writer{
		limits: limits,
		logger: logger,
		backOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(200*time.Millisecond),
				backoff.WithMaxInterval(5*time.Second),
				backoff.WithMaxElapsedTime(30*time.Second),
			), 5)
		},
	}
}

// EnqueueInsert queues the backup of a newly created object.
func (w *Writer) EnqueueInsert(name string, job Job) {
	w.mu.Lock()
	w.inserts = append(w.inserts, entry{name: name, job: job})
	w.mu.Unlock()
}

// EnqueueUpdate queues the backup of a changed object.
func (w *Writer) EnqueueUpdate(name string, job Job) {
	w.mu.Lock()
	w.updates = append(w.updates, entry{name: name, job: job})
	w.mu.Unlock()
}

// EnqueueDelete queues a soft delete.
func (w *Writer) EnqueueDelete(name string, job Job) {
	w.mu.Lock()
	w.deletes = append(w.deletes, entry{name: name, job: job})
	w.mu.Unlock()
}

// Len returns the number of pending jobs per queue.
func (w *Writer) Len() (inserts, updates, deletes int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inserts), len(w.updates), len(w.deletes)
}

func take(q *[]entry, n int) []entry {
	if n > len(*q) {
		n = len(*q)
	}
	out := append([]entry(nil), (*q)[:n]...)
	*q = (*q)[n:]
	return out
}

// Flush applies up to the configured number of inserts, then updates, then deletes, in
// FIFO order. All inserts of a flush share one run; each update gets its own. A job that
// keeps failing is logged and dropped. On cancellation the unapplied jobs stay queued.
func (w *Writer) Flush(ctx context.Context) (Stats, error) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	inserts := take(&w.inserts, w.limits.Inserts)
	updates := take(&w.updates, w.limits.Updates)
	deletes := take(&w.deletes, w.limits.Deletes)
	w.mu.Unlock()

	var stats Stats
	insertRun := backup.NewRun()

	batches := []batch{
		{queue: &w.inserts, entries: inserts, run: func() *backup.Run { return insertRun }},
		{queue: &w.updates, entries: updates, run: backup.NewRun},
		{queue: &w.deletes, entries: deletes, run: func() *backup.Run { return nil }},
	}

	for bi, b := range batches {
		for i, e := range b.entries {
			if ctx.Err() != nil {
				w.requeue(batches[bi:], i)
				return stats, ctx.Err()
			}
			if err := w.apply(ctx, e, b.run()); err != nil {
				if ctx.Err() != nil {
					w.requeue(batches[bi:], i)
					return stats, ctx.Err()
				}
				stats.Dropped++
				w.logger.Error("Dropping queued write", zap.String("job", e.name), zap.Error(err))
				continue
			}
			stats.Applied++
		}
	}

	if stats.Applied > 0 || stats.Dropped > 0 {
		w.logger.Info("Flushed write queues",
			zap.Int("applied", stats.Applied),
			zap.Int("dropped", stats.Dropped),
			zap.Any("counts", insertRun.Counts()))
	}
	return stats, nil
}

// requeue puts the unapplied tail of the first batch and all later batches back at the
// front of their queues.
func (w *Writer) requeue(batches []batch, from int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, b := range batches {
		rest := b.entries
		if i == 0 {
			rest = rest[from:]
		}
		*b.queue = append(append([]entry(nil), rest...), *b.queue...)
	}
}

// apply runs the job, retrying while it fails with a retryable storage error.
func (w *Writer) apply(ctx context.Context, e entry, run *backup.Run) error {
	err := backoff.Retry(func() error {
		err := e.job(ctx, run)
		if err == nil {
			return nil
		}
		if !database.IsRetryableError(err) || errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		w.logger.Debug("Retrying queued write", zap.String("job", e.name), zap.Error(err))
		return err
	}, backoff.WithContext(w.backOff(), ctx))
	if err != nil {
		return fmt.Errorf("%s failed: %w", e.name, err)
	}
	return nil
}
