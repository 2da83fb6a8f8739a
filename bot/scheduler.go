package bot

import (
	"context"
	"errors"
	"fmt"

	"discord-archiver/models"
	"discord-archiver/queue"
	"discord-archiver/scanner"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Flusher applies the queued gateway writes.
type Flusher interface {
	Flush(ctx context.Context) (queue.Stats, error)
}

// Backupper runs the scheduled backups.
type Backupper interface {
	FullBackup(ctx context.Context) error
	Resync(ctx context.Context) error
}

// Scheduler runs the periodic flush, full backup and resync jobs.
type Scheduler struct {
	ctx     context.Context
	cfg     models.BackupConfig
	flusher Flusher
	backups Backupper
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewScheduler creates a scheduler. Jobs run with ctx and a job still running when its
// next tick arrives is skipped.
func NewScheduler(ctx context.Context, cfg models.BackupConfig, flusher Flusher, backups Backupper, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Named("cron").Sugar()}
	return &Scheduler{
		ctx:     ctx,
		cfg:     cfg,
		flusher: flusher,
		backups: backups,
		logger:  logger,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}
}

// Start registers the jobs and starts the cron loop. With backupAtStartup a full backup
// is started right away.
func (s *Scheduler) Start(backupAtStartup bool) error {
	s.logger.Info("Initializing scheduler...")

	jobs := []struct {
		schedule string
		job      func()
	}{
		{fmt.Sprintf("@every %s", s.cfg.FlushInterval), s.flush},
		{s.cfg.FullSchedule, s.fullBackup},
		{s.cfg.ResyncSchedule, s.resync},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.schedule, j.job); err != nil {
			return fmt.Errorf("could not schedule %q: %w", j.schedule, err)
		}
	}
	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.Duration("flush_interval", s.cfg.FlushInterval),
		zap.String("full_schedule", s.cfg.FullSchedule),
		zap.String("resync_schedule", s.cfg.ResyncSchedule))

	if backupAtStartup {
		go func() {
			s.logger.Info("Performing initial backup on startup...")
			s.fullBackup()
		}()
	} else {
		s.logger.Info("Skipping initial backup on startup as per configuration.")
	}
	return nil
}

// Stop stops the cron loop. The returned context is done once running jobs complete.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	s.logger.Info("Scheduler stopped.")
	return ctx
}

func (s *Scheduler) flush() {
	if _, err := s.flusher.Flush(s.ctx); err != nil {
		s.logger.Warn("Queue flush interrupted", zap.Error(err))
	}
}

func (s *Scheduler) fullBackup() {
	s.report("full backup", s.backups.FullBackup(s.ctx))
}

func (s *Scheduler) resync() {
	s.report("resync", s.backups.Resync(s.ctx))
}

func (s *Scheduler) report(job string, err error) {
	switch {
	case errors.Is(err, scanner.ErrBusy):
		s.logger.Info("Skipping scheduled job, another backup is running", zap.String("job", job))
	case errors.Is(err, context.Canceled):
		s.logger.Info("Scheduled job cancelled", zap.String("job", job))
	case err != nil:
		s.logger.Error("Scheduled job failed", zap.String("job", job), zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
