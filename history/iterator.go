package history

import (
	"context"
	"time"

	"discord-archiver/source"

	"go.uber.org/zap"
)

// StaleAfter is how old the latest window of a channel must be before it is resynced.
const StaleAfter = 7 * 24 * time.Hour

// SoftDeleter marks rows as deleted.
type SoftDeleter interface {
	SoftDelete(ctx context.Context, id string) error
}

// HistoryIterator walks every channel and thread whose history is stale.
type HistoryIterator struct {
	src      source.Source
	store    Checkpoints
	channels SoftDeleter
	threads  SoftDeleter
	logger   *zap.Logger
	now      func() time.Time

	loaded  bool
	pending []string
}

// NewHistoryIterator creates a HistoryIterator. Channels that no longer resolve are
// soft-deleted through channels and threads.
func NewHistoryIterator(src source.Source, store Checkpoints, channels, threads SoftDeleter, logger *zap.Logger, now func() time.Time) *HistoryIterator {
	if now == nil {
		now = time.Now
	}
	return &HistoryIterator{
		src:      src,
		store:    store,
		channels: channels,
		threads:  threads,
		logger:   logger,
		now:      now,
	}
}

// Next returns the iterator of the next stale channel. ok is false once every stale
// channel was handed out.
func (h *HistoryIterator) Next(ctx context.Context) (it *MessageIterator, ok bool, err error) {
	if !h.loaded {
		h.pending, err = h.store.FindUpdatable(ctx, h.now().UTC().Add(-StaleAfter))
		if err != nil {
			return nil, false, err
		}
		h.loaded = true
		h.logger.Info("Loaded stale channels", zap.Int("count", len(h.pending)))
	}

	for len(h.pending) > 0 {
		channelID := h.pending[len(h.pending)-1]
		h.pending = h.pending[:len(h.pending)-1]

		ch, err := h.src.Channel(ctx, channelID)
		if err != nil {
			if source.IsNotFound(err) {
				h.logger.Info("Stale channel no longer exists, marking deleted", zap.String("channel_id", channelID))
				if err := h.channels.SoftDelete(ctx, channelID); err != nil {
					return nil, false, err
				}
				if err := h.threads.SoftDelete(ctx, channelID); err != nil {
					return nil, false, err
				}
				continue
			}
			if source.IsFetchError(err) {
				h.logger.Warn("Skipping stale channel", zap.String("channel_id", channelID), zap.Error(err))
				continue
			}
			return nil, false, err
		}

		return NewMessageIterator(h.src, h.store, ch, h.logger, h.now), true, nil
	}
	return nil, false, nil
}
