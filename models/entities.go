package models

import "time"

// Guild represents a row of the guilds table.
type Guild struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	IconURL   *string    `db:"icon_url"`
	CreatedAt time.Time  `db:"created_at"`
	EditedAt  *time.Time `db:"edited_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Category is a channel of type GUILD_CATEGORY.
type Category struct {
	ID        string     `db:"id"`
	GuildID   string     `db:"guild_id"`
	Name      string     `db:"name"`
	Position  int        `db:"position"`
	CreatedAt time.Time  `db:"created_at"`
	EditedAt  *time.Time `db:"edited_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Channel kinds stored in channels.type.
const (
	ChannelTypeText  = "text"
	ChannelTypeNews  = "news"
	ChannelTypeForum = "forum"
)

// Channel is a text, news or forum channel.
type Channel struct {
	ID         string     `db:"id"`
	GuildID    string     `db:"guild_id"`
	CategoryID *string    `db:"category_id"`
	Name       string     `db:"name"`
	Type       string     `db:"type"`
	CreatedAt  time.Time  `db:"created_at"`
	EditedAt   *time.Time `db:"edited_at"`
	DeletedAt  *time.Time `db:"deleted_at"`
}

// Thread always belongs to a persisted channel.
type Thread struct {
	ID         string     `db:"id"`
	ChannelID  string     `db:"channel_id"`
	Name       string     `db:"name"`
	ArchivedAt *time.Time `db:"archived_at"`
	CreatedAt  time.Time  `db:"created_at"`
	EditedAt   *time.Time `db:"edited_at"`
	DeletedAt  *time.Time `db:"deleted_at"`
}

// Role represents a guild role.
type Role struct {
	ID        string     `db:"id"`
	GuildID   string     `db:"guild_id"`
	Name      string     `db:"name"`
	Color     int        `db:"color"`
	CreatedAt time.Time  `db:"created_at"`
	EditedAt  *time.Time `db:"edited_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// User keeps every display name it was ever seen with, newest first.
type User struct {
	ID        string     `db:"id"`
	Names     []string   `db:"names"`
	AvatarURL *string    `db:"avatar_url"`
	IsBot     bool       `db:"is_bot"`
	CreatedAt time.Time  `db:"created_at"`
	EditedAt  *time.Time `db:"edited_at"`
}

// Message belongs to exactly one of ChannelID or ThreadID.
type Message struct {
	ID        string     `db:"id"`
	GuildID   string     `db:"guild_id"`
	ChannelID *string    `db:"channel_id"`
	ThreadID  *string    `db:"thread_id"`
	AuthorID  string     `db:"author_id"`
	Content   string     `db:"content"`
	IsCommand bool       `db:"is_command"`
	CreatedAt time.Time  `db:"created_at"`
	EditedAt  *time.Time `db:"edited_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// Attachment is immutable after insert.
type Attachment struct {
	ID        string `db:"id"`
	MessageID string `db:"message_id"`
	Filename  string `db:"filename"`
	URL       string `db:"url"`
}

// Reaction is keyed by (MessageID, EmojiID); MemberIDs is replaced on each observation.
type Reaction struct {
	MessageID string    `db:"message_id"`
	EmojiID   string    `db:"emoji_id"`
	MemberIDs []string  `db:"member_ids"`
	CreatedAt time.Time `db:"created_at"`
}

// Emoji is either a custom guild emoji or a Unicode emoji with a synthesized ID.
type Emoji struct {
	ID       string  `db:"id"`
	Name     string  `db:"name"`
	URL      *string `db:"url"`
	Animated bool    `db:"animated"`
}

// MessageEmoji counts the occurrences of an emoji inside a message's content.
type MessageEmoji struct {
	MessageID string `db:"message_id"`
	EmojiID   string `db:"emoji_id"`
	Count     int    `db:"count"`
}
