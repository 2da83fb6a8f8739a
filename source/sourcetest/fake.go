// Package sourcetest provides an in-memory source.Source for tests.
package sourcetest

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"discord-archiver/source"

	"github.com/bwmarrin/discordgo"
)

// Fake serves guild objects from memory. Errors are keyed by "<op>:<id>", for example
// "messages:3" or "threads:3".
type Fake struct {
	mu sync.Mutex

	GuildList []*discordgo.Guild
	Channels  map[string]*discordgo.Channel
	Roles     map[string][]*discordgo.Role
	Members   map[string][]*discordgo.Member
	Emojis    map[string][]*discordgo.Emoji
	Threads   map[string][]*discordgo.Channel
	Messages  map[string][]*discordgo.Message
	Reactions map[string][]*discordgo.User // keyed by message ID and emoji API name
	Errors    map[string]error

	Calls []string
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Channels:  make(map[string]*discordgo.Channel),
		Roles:     make(map[string][]*discordgo.Role),
		Members:   make(map[string][]*discordgo.Member),
		Emojis:    make(map[string][]*discordgo.Emoji),
		Threads:   make(map[string][]*discordgo.Channel),
		Messages:  make(map[string][]*discordgo.Message),
		Reactions: make(map[string][]*discordgo.User),
		Errors:    make(map[string]error),
	}
}

// NotFound builds the REST error Discord answers for an unknown channel.
func NotFound() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel, Message: "Unknown Channel"},
	}
}

// Forbidden builds the REST error Discord answers when the bot lacks access.
func Forbidden() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden, Status: "403 Forbidden"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess, Message: "Missing Access"},
	}
}

// ReactionKey returns the Reactions key of emoji on messageID.
func ReactionKey(messageID string, emoji *discordgo.Emoji) string {
	return messageID + "/" + emoji.APIName()
}

// AddChannel registers channels.
func (f *Fake) AddChannel(channels ...*discordgo.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range channels {
		f.Channels[ch.ID] = ch
	}
}

// CallCount returns how many times call was made.
func (f *Fake) CallCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *Fake) record(op, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := op + ":" + id
	f.Calls = append(f.Calls, key)
	if err, ok := f.Errors[key]; ok {
		return &source.FetchError{Op: op, ID: id, Err: err}
	}
	return nil
}

func (f *Fake) Guilds(ctx context.Context) ([]*discordgo.Guild, error) {
	if err := f.record("guilds", "@me"); err != nil {
		return nil, err
	}
	return f.GuildList, nil
}

func (f *Fake) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if err := f.record("guild", guildID); err != nil {
		return nil, err
	}
	for _, g := range f.GuildList {
		if g.ID == guildID {
			return g, nil
		}
	}
	return nil, &source.FetchError{Op: "guild", ID: guildID, Err: NotFound()}
}

func (f *Fake) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if err := f.record("channel", channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.Channels[channelID]; ok {
		return ch, nil
	}
	for _, threads := range f.Threads {
		for _, t := range threads {
			if t.ID == channelID {
				return t, nil
			}
		}
	}
	return nil, &source.FetchError{Op: "channel", ID: channelID, Err: NotFound()}
}

func (f *Fake) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if err := f.record("channels", guildID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var channels []*discordgo.Channel
	for _, ch := range f.Channels {
		if ch.GuildID == guildID && !ch.IsThread() {
			channels = append(channels, ch)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return less(channels[i].ID, channels[j].ID) })
	return channels, nil
}

func (f *Fake) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if err := f.record("roles", guildID); err != nil {
		return nil, err
	}
	return f.Roles[guildID], nil
}

func (f *Fake) GuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	if err := f.record("members", guildID); err != nil {
		return nil, err
	}
	return f.Members[guildID], nil
}

func (f *Fake) GuildEmojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error) {
	if err := f.record("emojis", guildID); err != nil {
		return nil, err
	}
	return f.Emojis[guildID], nil
}

func (f *Fake) ChannelThreads(ctx context.Context, channelID string) ([]*discordgo.Channel, error) {
	if err := f.record("threads", channelID); err != nil {
		return nil, err
	}
	return f.Threads[channelID], nil
}

// ChannelMessages mimics Discord: the limit oldest messages after afterID, newest first.
func (f *Fake) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error) {
	if err := f.record("messages", channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var page []*discordgo.Message
	for _, msg := range f.Messages[channelID] {
		if afterID != "" && !less(afterID, msg.ID) {
			continue
		}
		if beforeID != "" && !less(msg.ID, beforeID) {
			continue
		}
		page = append(page, msg)
	}
	sort.Slice(page, func(i, j int) bool { return less(page[i].ID, page[j].ID) })
	if len(page) > limit {
		page = page[:limit]
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (f *Fake) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if err := f.record("message", messageID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.Messages[channelID] {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return nil, &source.FetchError{Op: "message", ID: messageID, Err: NotFound()}
}

func (f *Fake) MessageReactions(ctx context.Context, channelID, messageID string, emoji *discordgo.Emoji) ([]*discordgo.User, error) {
	if err := f.record("reactions", messageID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reactions[ReactionKey(messageID, emoji)], nil
}

func less(a, b string) bool {
	x, errX := strconv.ParseUint(a, 10, 64)
	y, errY := strconv.ParseUint(b, 10, 64)
	if errX != nil || errY != nil {
		return a < b
	}
	return x < y
}

var _ source.Source = (*Fake)(nil)
