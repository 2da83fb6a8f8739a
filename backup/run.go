package backup

import (
	"context"
	"sync"
	"time"

	"discord-archiver/source"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// Kind names an entity type of the archive.
type Kind string

const (
	KindGuild        Kind = "guild"
	KindCategory     Kind = "category"
	KindChannel      Kind = "channel"
	KindThread       Kind = "thread"
	KindRole         Kind = "role"
	KindUser         Kind = "user"
	KindMessage      Kind = "message"
	KindReaction     Kind = "reaction"
	KindAttachment   Kind = "attachment"
	KindEmoji        Kind = "emoji"
	KindMessageEmoji Kind = "message_emoji"
)

// Run is the bookkeeping of one traversal: the nodes persisted so far, per kind, and
// the Discord objects fetched while walking.
type Run struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	visited  map[Kind]map[string]struct{}
	counts   map[Kind]int
	channels map[string]*discordgo.Channel
	guildChs map[string][]*discordgo.Channel
}

// NewRun starts an empty traversal run.
func NewRun() *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		visited:   make(map[Kind]map[string]struct{}),
		counts:    make(map[Kind]int),
		channels:  make(map[string]*discordgo.Channel),
		guildChs:  make(map[string][]*discordgo.Channel),
	}
}

// Visit marks the node persisted and reports whether it was not already.
func (r *Run) Visit(kind Kind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.visited[kind]
	if !ok {
		set = make(map[string]struct{})
		r.visited[kind] = set
	}
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	r.counts[kind]++
	return true
}

// Seen reports whether the node was persisted during this run.
func (r *Run) Seen(kind Kind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.visited[kind][id]
	return ok
}

// Counts returns the number of persisted nodes per kind.
func (r *Run) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.counts))
	for kind, n := range r.counts {
		counts[string(kind)] = n
	}
	return counts
}

func (r *Run) remember(ch *discordgo.Channel) {
	r.mu.Lock()
	r.channels[ch.ID] = ch
	r.mu.Unlock()
}

// channel resolves a channel or thread, fetching it once per run.
func (r *Run) channel(ctx context.Context, src source.Source, channelID string) (*discordgo.Channel, error) {
	r.mu.Lock()
	ch, ok := r.channels[channelID]
	r.mu.Unlock()
	if ok {
		return ch, nil
	}

	ch, err := src.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	r.remember(ch)
	return ch, nil
}

// guildChannels lists the channels of a guild, fetching them once per run.
func (r *Run) guildChannels(ctx context.Context, src source.Source, guildID string) ([]*discordgo.Channel, error) {
	r.mu.Lock()
	channels, ok := r.guildChs[guildID]
	r.mu.Unlock()
	if ok {
		return channels, nil
	}

	channels, err := src.GuildChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.guildChs[guildID] = channels
	for _, ch := range channels {
		r.channels[ch.ID] = ch
	}
	r.mu.Unlock()
	return channels, nil
}
