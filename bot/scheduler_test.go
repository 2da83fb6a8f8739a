package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"discord-archiver/models"
	"discord-archiver/queue"
	"discord-archiver/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeJobs struct {
	mu      sync.Mutex
	calls   []string
	err     error
	flushed chan struct{}
}

func (f *fakeJobs) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeJobs) Flush(context.Context) (queue.Stats, error) {
	f.record("flush")
	if f.flushed != nil {
		select {
		case f.flushed <- struct{}{}:
		default:
		}
	}
	return queue.Stats{}, nil
}

func (f *fakeJobs) FullBackup(context.Context) error {
	f.record("full")
	return f.err
}

func (f *fakeJobs) Resync(context.Context) error {
	f.record("resync")
	return f.err
}

func (f *fakeJobs) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func schedule() models.BackupConfig {
	return models.BackupConfig{
		FlushInterval:  time.Second,
		FullSchedule:   "@weekly",
		ResyncSchedule: "@daily",
	}
}

func TestScheduler_Start(t *testing.T) {
	jobs := &fakeJobs{flushed: make(chan struct{}, 1)}
	s := NewScheduler(t.Context(), schedule(), jobs, jobs, zap.NewNop())

	require.NoError(t, s.Start(false))
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 3)

	select {
	case <-jobs.flushed:
	case <-time.After(5 * time.Second):
		t.Fatal("flush did not run")
	}
	assert.NotContains(t, jobs.Calls(), "full")
}

func TestScheduler_BackupAtStartup(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewScheduler(t.Context(), schedule(), jobs, jobs, zap.NewNop())

	require.NoError(t, s.Start(true))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		for _, c := range jobs.Calls() {
			if c == "full" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	cfg := schedule()
	cfg.ResyncSchedule = "every now and then"
	s := NewScheduler(t.Context(), cfg, &fakeJobs{}, &fakeJobs{}, zap.NewNop())

	err := s.Start(false)
	assert.ErrorContains(t, err, "every now and then")
}

func TestScheduler_Report(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
		logs  int
	}{
		{name: "success", err: nil, logs: 0},
		{name: "busy", err: scanner.ErrBusy, level: zapcore.InfoLevel, logs: 1},
		{name: "cancelled", err: context.Canceled, level: zapcore.InfoLevel, logs: 1},
		{name: "failure", err: errors.New("boom"), level: zapcore.ErrorLevel, logs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			jobs := &fakeJobs{err: tt.err}
			s := NewScheduler(t.Context(), schedule(), jobs, jobs, zap.New(core))

			s.resync()

			assert.Equal(t, []string{"resync"}, jobs.Calls())
			require.Equal(t, tt.logs, logs.Len())
			if tt.logs > 0 {
				assert.Equal(t, tt.level, logs.All()[0].Level)
			}
		})
	}
}
