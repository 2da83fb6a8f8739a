package backup

import (
	"context"
	"sync"
	"time"

	"discord-archiver/utils"

	"go.uber.org/zap"
)

// Throttle pauses message backups for a fixed cooldown every threshold messages.
type Throttle struct {
	threshold int
	cooldown  time.Duration
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) utils.SleepResult

	mu    sync.Mutex
	count int
}

// NewThrottle creates a Throttle. A threshold of zero disables it.
func NewThrottle(threshold int, cooldown time.Duration, logger *zap.Logger) *Throttle {
	return &Throttle{
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		sleep:     utils.ContextSleep,
	}
}

// Tick counts one backed up message and sleeps once the threshold is reached.
func (t *Throttle) Tick(ctx context.Context) error {
	if t == nil || t.threshold <= 0 {
		return nil
	}

	t.mu.Lock()
	t.count++
	reached := t.count >= t.threshold
	if reached {
		t.count = 0
	}
	t.mu.Unlock()

	if !reached {
		return nil
	}

	t.logger.Info("Message threshold reached, cooling down",
		zap.Int("threshold", t.threshold),
		zap.Duration("cooldown", t.cooldown))

	if t.sleep(ctx, t.cooldown) == utils.SleepCancelled {
		return ctx.Err()
	}
	return nil
}
