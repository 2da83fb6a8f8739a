package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep.
type SleepResult int

const (
	// SleepCompleted indicates the full duration elapsed.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled during the sleep.
	SleepCancelled
)

// ContextSleep sleeps for duration while respecting context cancellation.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextGuardWithLog reports whether ctx is cancelled, logging msg if so.
func ContextGuardWithLog(ctx context.Context, logger *zap.Logger, msg string) bool {
	select {
	case <-ctx.Done():
		logger.Info(msg, zap.Error(ctx.Err()))
		return true
	default:
		return false
	}
}
