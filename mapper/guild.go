package mapper

import (
	"fmt"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
)

// GuildMapper maps guilds.
type GuildMapper struct{}

// Map converts g into a guild row.
func (GuildMapper) Map(g *discordgo.Guild) (*models.Guild, error) {
	createdAt, err := CreatedAt(g.ID)
	if err != nil {
		return nil, err
	}
	return &models.Guild{
		ID:        g.ID,
		Name:      g.Name,
		IconURL:   optional(g.IconURL("")),
		CreatedAt: createdAt,
	}, nil
}

// CategoryMapper maps category channels.
type CategoryMapper struct{}

// Map converts c into a category row.
func (CategoryMapper) Map(c *discordgo.Channel) (*models.Category, error) {
	if c.Type != discordgo.ChannelTypeGuildCategory {
		return nil, fmt.Errorf("channel %s of type %d is not a category: %w", c.ID, c.Type, ErrUnsupported)
	}
	createdAt, err := CreatedAt(c.ID)
	if err != nil {
		return nil, err
	}
	return &models.Category{
		ID:        c.ID,
		GuildID:   c.GuildID,
		Name:      c.Name,
		Position:  c.Position,
		CreatedAt: createdAt,
	}, nil
}

// ChannelMapper maps text, news and forum channels.
type ChannelMapper struct{}

var channelTypes = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:  models.ChannelTypeText,
	discordgo.ChannelTypeGuildNews:  models.ChannelTypeNews,
	discordgo.ChannelTypeGuildForum: models.ChannelTypeForum,
}

// CanMap reports whether c is a channel kind that holds archivable messages.
func (ChannelMapper) CanMap(c *discordgo.Channel) bool {
	_, ok := channelTypes[c.Type]
	return ok
}

// Map converts c into a channel row.
func (m ChannelMapper) Map(c *discordgo.Channel) (*models.Channel, error) {
	kind, ok := channelTypes[c.Type]
	if !ok {
		return nil, fmt.Errorf("channel %s of type %d: %w", c.ID, c.Type, ErrUnsupported)
	}
	createdAt, err := CreatedAt(c.ID)
	if err != nil {
		return nil, err
	}
	return &models.Channel{
		ID:         c.ID,
		GuildID:    c.GuildID,
		CategoryID: optional(c.ParentID),
		Name:       c.Name,
		Type:       kind,
		CreatedAt:  createdAt,
	}, nil
}

// ThreadMapper maps public, private and announcement threads.
type ThreadMapper struct{}

// Map converts t into a thread row.
func (ThreadMapper) Map(t *discordgo.Channel) (*models.Thread, error) {
	if !t.IsThread() {
		return nil, fmt.Errorf("channel %s of type %d is not a thread: %w", t.ID, t.Type, ErrUnsupported)
	}
	if t.ParentID == "" {
		return nil, fmt.Errorf("thread %s has no parent: %w", t.ID, ErrUnsupported)
	}
	createdAt, err := CreatedAt(t.ID)
	if err != nil {
		return nil, err
	}

	thread := &models.Thread{
		ID:        t.ID,
		ChannelID: t.ParentID,
		Name:      t.Name,
		CreatedAt: createdAt,
	}
	if t.ThreadMetadata != nil && t.ThreadMetadata.Archived {
		archivedAt := t.ThreadMetadata.ArchiveTimestamp.UTC()
		thread.ArchivedAt = &archivedAt
	}
	return thread, nil
}

// RoleMapper maps guild roles.
type RoleMapper struct{}

// Map converts r into a role row of guildID.
func (RoleMapper) Map(guildID string, r *discordgo.Role) (*models.Role, error) {
	createdAt, err := CreatedAt(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.Role{
		ID:        r.ID,
		GuildID:   guildID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: createdAt,
	}, nil
}

// UserMapper maps users.
type UserMapper struct{}

// Map converts u into a user row carrying its current display name.
func (UserMapper) Map(u *discordgo.User) (*models.User, error) {
	createdAt, err := CreatedAt(u.ID)
	if err != nil {
		return nil, err
	}

	var names []string
	if name := u.DisplayName(); name != "" {
		names = []string{name}
	}
	return &models.User{
		ID:        u.ID,
		Names:     names,
		AvatarURL: optional(u.AvatarURL("")),
		IsBot:     u.Bot,
		CreatedAt: createdAt,
	}, nil
}
