package source

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	membersPageSize   = 1000
	reactionsPageSize = 100
	threadsPageSize   = 100
	guildsPageSize    = 200
)

// Session reads from a live discordgo session, preferring its state cache.
type Session struct {
	s *discordgo.Session
}

// NewSession wraps s.
func NewSession(s *discordgo.Session) *Session {
	return &Session{s: s}
}

// Guilds returns the guilds the bot is in.
func (src *Session) Guilds(ctx context.Context) ([]*discordgo.Guild, error) {
	if src.s.State != nil {
		src.s.State.RLock()
		guilds := make([]*discordgo.Guild, len(src.s.State.Guilds))
		copy(guilds, src.s.State.Guilds)
		src.s.State.RUnlock()
		if len(guilds) > 0 {
			return guilds, nil
		}
	}

	var (
		guilds []*discordgo.Guild
		after  string
	)
	for {
		page, err := src.s.UserGuilds(guildsPageSize, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fetchError("guilds", "@me", err)
		}
		for _, ug := range page {
			g, err := src.Guild(ctx, ug.ID)
			if err != nil {
				return nil, err
			}
			guilds = append(guilds, g)
		}
		if len(page) < guildsPageSize {
			return guilds, nil
		}
		after = page[len(page)-1].ID
	}
}

// Guild returns a guild.
func (src *Session) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if src.s.State != nil {
		if g, err := src.s.State.Guild(guildID); err == nil {
			return g, nil
		}
	}
	g, err := src.s.Guild(guildID, discordgo.WithContext(ctx))
	return g, fetchError("guild", guildID, err)
}

// Channel returns a channel or thread.
func (src *Session) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if src.s.State != nil {
		if ch, err := src.s.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	ch, err := src.s.Channel(channelID, discordgo.WithContext(ctx))
	return ch, fetchError("channel", channelID, err)
}

// GuildChannels returns every channel of a guild.
func (src *Session) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	channels, err := src.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	return channels, fetchError("channels of guild", guildID, err)
}

// GuildRoles returns every role of a guild.
func (src *Session) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	roles, err := src.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	return roles, fetchError("roles of guild", guildID, err)
}

// GuildMembers returns every member of a guild, following pagination.
func (src *Session) GuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	var (
		members []*discordgo.Member
		after   string
	)
	for {
		page, err := src.s.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fetchError("members of guild", guildID, err)
		}
		members = append(members, page...)
		if len(page) < membersPageSize {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// GuildEmojis returns the custom emoji of a guild.
func (src *Session) GuildEmojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error) {
	emojis, err := src.s.GuildEmojis(guildID, discordgo.WithContext(ctx))
	return emojis, fetchError("emojis of guild", guildID, err)
}

// ChannelThreads returns the active threads of a channel followed by its archived ones.
func (src *Session) ChannelThreads(ctx context.Context, channelID string) ([]*discordgo.Channel, error) {
	ch, err := src.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var threads []*discordgo.Channel
	seen := make(map[string]bool)

	active, err := src.s.GuildThreadsActive(ch.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fetchError("active threads of guild", ch.GuildID, err)
	}
	for _, thread := range active.Threads {
		if thread.ParentID == channelID && !seen[thread.ID] {
			seen[thread.ID] = true
			threads = append(threads, thread)
		}
	}

	var before *time.Time
	for {
		archived, err := src.s.ThreadsArchived(channelID, before, threadsPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fetchError("archived threads of channel", channelID, err)
		}
		if len(archived.Threads) == 0 {
			break
		}

		for _, thread := range archived.Threads {
			if !seen[thread.ID] {
				seen[thread.ID] = true
				threads = append(threads, thread)
			}
			if thread.ThreadMetadata != nil {
				// The next page starts before the archive time of the last thread.
				t := thread.ThreadMetadata.ArchiveTimestamp
				before = &t
			}
		}

		if !archived.HasMore {
			break
		}
	}
	return threads, nil
}

// ChannelMessages returns up to limit messages of a channel or thread.
func (src *Session) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error) {
	messages, err := src.s.ChannelMessages(channelID, limit, beforeID, afterID, "", discordgo.WithContext(ctx))
	return messages, fetchError("messages of channel", channelID, err)
}

// ChannelMessage returns one message.
func (src *Session) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	msg, err := src.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err == nil && msg.GuildID == "" {
		if ch, chErr := src.Channel(ctx, channelID); chErr == nil {
			msg.GuildID = ch.GuildID
		}
	}
	return msg, fetchError("message", messageID, err)
}

// MessageReactions returns every user who reacted to a message with emoji.
func (src *Session) MessageReactions(ctx context.Context, channelID, messageID string, emoji *discordgo.Emoji) ([]*discordgo.User, error) {
	var (
		users []*discordgo.User
		after string
	)
	for {
		page, err := src.s.MessageReactions(channelID, messageID, emoji.APIName(), reactionsPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fetchError("reactions of message", messageID, err)
		}
		users = append(users, page...)
		if len(page) < reactionsPageSize {
			return users, nil
		}
		after = page[len(page)-1].ID
	}
}
