// Package source is the read-only view of Discord the archiver walks.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
)

// discordEpoch is the first millisecond of 2015, in Unix milliseconds.
const discordEpoch int64 = 1420070400000

// Source fetches guild objects from Discord.
type Source interface {
	Guilds(ctx context.Context) ([]*discordgo.Guild, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	GuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error)
	GuildEmojis(ctx context.Context, guildID string) ([]*discordgo.Emoji, error)
	// ChannelThreads returns the active and archived threads of a channel.
	ChannelThreads(ctx context.Context, channelID string) ([]*discordgo.Channel, error)
	ChannelMessages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error)
	ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	// MessageReactions returns every user who reacted with emoji.
	MessageReactions(ctx context.Context, channelID, messageID string, emoji *discordgo.Emoji) ([]*discordgo.User, error)
}

// FetchError is a failed read from Discord. The archiver skips the affected object
// instead of aborting the run.
type FetchError struct {
	Op  string
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Op: op, ID: id, Err: err}
}

// IsFetchError reports whether err carries a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func restError(err error) (*discordgo.RESTError, bool) {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		return restErr, true
	}
	return nil, false
}

// IsNotFound reports whether Discord answered that the object does not exist.
func IsNotFound(err error) bool {
	restErr, ok := restError(err)
	if !ok {
		return errors.Is(err, discordgo.ErrStateNotFound)
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownGuild:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// IsForbidden reports whether the bot lacks access to the object.
func IsForbidden(err error) bool {
	restErr, ok := restError(err)
	if !ok {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

// SnowflakeFromTime returns the largest snowflake created before t. Passed as afterID to a
// history request it selects the messages created at or after t.
func SnowflakeFromTime(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if ms <= 0 {
		return "0"
	}
	return strconv.FormatInt(ms<<22-1, 10)
}

// SnowflakeAt returns the first snowflake of the millisecond t.
func SnowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - discordEpoch
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms<<22, 10)
}
