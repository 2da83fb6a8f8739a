// Package history pages through channel message history in weekly windows and records
// checkpoints so an interrupted window is fetched again from its start.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"discord-archiver/database"
	"discord-archiver/mapper"
	"discord-archiver/models"
	"discord-archiver/source"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	// WindowSize is the span of one history window.
	WindowSize = 7 * 24 * time.Hour
	// MinWindow is the narrowest window worth fetching.
	MinWindow = 24 * time.Hour

	pageSize = 100
)

// Checkpoints stores history windows.
type Checkpoints interface {
	Insert(ctx context.Context, p *models.LoggerProcess) error
	FindLast(ctx context.Context, channelID string) (*models.LoggerProcess, error)
	Finish(ctx context.Context, channelID string, from, to time.Time, exact bool) error
	FindUpdatable(ctx context.Context, staleBefore time.Time) ([]string, error)
}

// MessageIterator hands out the next history window of one channel or thread.
type MessageIterator struct {
	src     source.Source
	store   Checkpoints
	channel *discordgo.Channel
	logger  *zap.Logger
	now     func() time.Time
}

// NewMessageIterator creates a MessageIterator for channel.
func NewMessageIterator(src source.Source, store Checkpoints, channel *discordgo.Channel, logger *zap.Logger, now func() time.Time) *MessageIterator {
	if now == nil {
		now = time.Now
	}
	return &MessageIterator{
		src:     src,
		store:   store,
		channel: channel,
		logger:  logger.With(zap.String("channel_id", channel.ID)),
		now:     now,
	}
}

// Channel returns the channel or thread being iterated.
func (it *MessageIterator) Channel() *discordgo.Channel {
	return it.channel
}

// History computes the next window and records its checkpoint. A window narrower than
// MinWindow is returned already exhausted and writes nothing.
func (it *MessageIterator) History(ctx context.Context) (*Window, error) {
	createdAt, err := mapper.CreatedAt(it.channel.ID)
	if err != nil {
		return nil, err
	}
	createdAt = createdAt.Truncate(time.Second)

	var (
		from      time.Time
		firstWeek bool
	)
	last, err := it.store.FindLast(ctx, it.channel.ID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		from, firstWeek = createdAt, true
	case err != nil:
		return nil, err
	case !last.Finished():
		// The previous attempt at this window never completed.
		from = last.FromDate
		firstWeek = from.Equal(createdAt)
	default:
		from = last.ToDate
	}

	now := it.now().UTC().Truncate(time.Second)
	to := from.Add(WindowSize)
	if to.After(now) {
		to = now
	}

	w := &Window{
		From:      from,
		To:        to,
		channelID: it.channel.ID,
		firstWeek: firstWeek,
		src:       it.src,
		store:     it.store,
		logger:    it.logger,
		afterID:   source.SnowflakeFromTime(from),
	}
	if to.Sub(from) < MinWindow {
		w.caughtUp, w.exhausted, w.finished = true, true, true
		return w, nil
	}

	if err := it.store.Insert(ctx, &models.LoggerProcess{ChannelID: it.channel.ID, FromDate: from, ToDate: to}); err != nil {
		return nil, err
	}
	it.logger.Debug("Fetching history window", zap.Time("from", from), zap.Time("to", to), zap.Bool("first_week", firstWeek))
	return w, nil
}

// Window is one pass over the messages of [From, To), oldest first. It fetches pages
// lazily and stamps its checkpoint finished once drained.
type Window struct {
	From time.Time
	To   time.Time

	channelID string
	firstWeek bool
	src       source.Source
	store     Checkpoints
	logger    *zap.Logger

	afterID   string
	buffer    []*discordgo.Message
	caughtUp  bool
	exhausted bool
	finished  bool
}

// Empty reports whether the window was caught up before fetching anything.
func (w *Window) Empty() bool {
	return w.caughtUp
}

// Next returns the next message of the window. ok is false once the window is drained.
func (w *Window) Next(ctx context.Context) (msg *discordgo.Message, ok bool, err error) {
	for len(w.buffer) == 0 {
		if w.exhausted {
			return nil, false, w.finish(ctx)
		}
		if err := w.fetch(ctx); err != nil {
			return nil, false, err
		}
	}

	msg, w.buffer = w.buffer[0], w.buffer[1:]
	return msg, true, nil
}

func (w *Window) fetch(ctx context.Context) error {
	page, err := w.src.ChannelMessages(ctx, w.channelID, pageSize, "", w.afterID)
	if err != nil {
		return err
	}

	sort.Slice(page, func(i, j int) bool { return snowflakeLess(page[i].ID, page[j].ID) })

	if len(page) < pageSize {
		w.exhausted = true
	}
	for _, msg := range page {
		if !messageTime(msg).Before(w.To) {
			w.exhausted = true
			break
		}
		w.buffer = append(w.buffer, msg)
	}
	if len(page) > 0 {
		w.afterID = page[len(page)-1].ID
	}
	return nil
}

func (w *Window) finish(ctx context.Context) error {
	if w.finished {
		return nil
	}
	w.finished = true

	err := w.store.Finish(ctx, w.channelID, w.From, w.To, !w.firstWeek)
	if errors.Is(err, database.ErrNotFound) {
		w.logger.Warn("History window was already finished or moved", zap.Time("from", w.From), zap.Time("to", w.To))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to finish history window of channel %s: %w", w.channelID, err)
	}
	return nil
}

func messageTime(msg *discordgo.Message) time.Time {
	if !msg.Timestamp.IsZero() {
		return msg.Timestamp
	}
	t, _ := discordgo.SnowflakeTimestamp(msg.ID)
	return t
}

// snowflakeLess orders decimal snowflakes numerically.
func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
