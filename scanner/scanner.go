package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"discord-archiver/backup"
	"discord-archiver/database"
	"discord-archiver/history"
	"discord-archiver/source"
	"discord-archiver/utils"

	"go.uber.org/zap"
)

// Run kinds recorded in the status file.
const (
	KindFull   = "full"
	KindResync = "resync"
)

// ErrBusy is returned when a backup or resync is triggered while another one runs.
var ErrBusy = errors.New("a backup is already running")

// Deps are the collaborators of a Scanner.
type Deps struct {
	Registry    *backup.Registry
	Source      source.Source
	Checkpoints history.Checkpoints
	Channels    history.SoftDeleter
	Threads     history.SoftDeleter
	Status      *database.StatusManager
	Logger      *zap.Logger
	Now         func() time.Time
}

// Scanner runs full backups and stale channel resyncs, one at a time.
type Scanner struct {
	deps    Deps
	running atomic.Bool
}

// New creates a Scanner.
func New(deps Deps) *Scanner {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Status == nil {
		deps.Status = database.NewStatusManager("")
	}
	return &Scanner{deps: deps}
}

// Running reports whether a backup or resync is in progress.
func (s *Scanner) Running() bool {
	return s.running.Load()
}

// FullBackup walks every guild the bot is in.
func (s *Scanner) FullBackup(ctx context.Context) error {
	return s.exclusive(ctx, KindFull, func(ctx context.Context, run *backup.Run) error {
		return s.deps.Registry.Bot.TraverseDown(ctx, run)
	})
}

// Resync fetches the missing history of every channel and thread whose checkpoints went
// stale.
func (s *Scanner) Resync(ctx context.Context) error {
	return s.exclusive(ctx, KindResync, func(ctx context.Context, run *backup.Run) error {
		h := history.NewHistoryIterator(s.deps.Source, s.deps.Checkpoints, s.deps.Channels, s.deps.Threads, s.deps.Logger, s.deps.Now)
		for {
			if utils.ContextGuardWithLog(ctx, s.deps.Logger, "Resync cancelled") {
				return ctx.Err()
			}
			it, ok, err := h.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			channelID := it.Channel().ID
			s.deps.Logger.Info("Resyncing channel history", zap.String("channel_id", channelID))
			err = s.deps.Registry.Drain(ctx, run, it)
			if source.IsFetchError(err) {
				s.deps.Logger.Warn("Skipping channel resync", zap.String("channel_id", channelID), zap.Error(err))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to resync channel %s: %w", channelID, err)
			}
		}
	})
}

func (s *Scanner) exclusive(ctx context.Context, kind string, fn func(context.Context, *backup.Run) error) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.running.Store(false)

	run := backup.NewRun()
	logger := s.deps.Logger.With(zap.String("run_id", run.ID), zap.String("kind", kind))
	logger.Info("Starting backup run")

	status := s.deps.Status
	record := status.StartRun(run.ID, kind)
	if err := status.Save(); err != nil {
		logger.Warn("Failed to save status file", zap.Error(err))
	}

	err := fn(ctx, run)

	status.FinishRun(record, run.Counts(), err)
	if saveErr := status.Save(); saveErr != nil {
		logger.Warn("Failed to save status file", zap.Error(saveErr))
	}

	if err != nil {
		logger.Error("Backup run failed", zap.Error(err), zap.Any("counts", run.Counts()))
		return err
	}
	logger.Info("Backup run finished", zap.Duration("took", time.Since(run.StartedAt)), zap.Any("counts", run.Counts()))
	return nil
}
