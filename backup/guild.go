package backup

import (
	"context"
	"fmt"

	"discord-archiver/mapper"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// BotProcessor walks every guild the bot is in.
type BotProcessor struct {
	r *Registry
}

// TraverseDown backs up every guild and everything below it.
func (p *BotProcessor) TraverseDown(ctx context.Context, run *Run) error {
	guilds, err := p.r.deps.Source.Guilds(ctx)
	if err != nil {
		return err
	}

	for _, g := range guilds {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.r.logger().Info("Backing up guild", zap.String("guild_id", g.ID), zap.String("guild_name", g.Name))
		if err := p.r.Guild.TraverseDown(ctx, run, g); err != nil {
			return fmt.Errorf("failed to back up guild %s: %w", g.ID, err)
		}
	}
	return nil
}

// GuildProcessor persists guilds.
type GuildProcessor struct {
	r      *Registry
	mapper mapper.GuildMapper
}

// TraverseUp persists the guild; guilds have no ancestors.
func (p *GuildProcessor) TraverseUp(ctx context.Context, run *Run, g *discordgo.Guild) error {
	if run.Seen(KindGuild, g.ID) {
		return nil
	}
	return p.Backup(ctx, run, g)
}

// Backup persists the guild row.
func (p *GuildProcessor) Backup(ctx context.Context, run *Run, g *discordgo.Guild) error {
	if run.Seen(KindGuild, g.ID) {
		return nil
	}
	row, err := p.mapper.Map(g)
	if err != nil {
		return err
	}
	if err := p.r.deps.Guilds.Insert(ctx, row); err != nil {
		return err
	}
	run.Visit(KindGuild, g.ID)
	return nil
}

// TraverseDown persists the guild, then its users, roles, emoji, uncategorized
// channels and categories, in that order.
func (p *GuildProcessor) TraverseDown(ctx context.Context, run *Run, g *discordgo.Guild) error {
	if err := p.TraverseUp(ctx, run, g); err != nil {
		return err
	}
	src := p.r.deps.Source
	guildField := zap.String("guild_id", g.ID)

	members, err := src.GuildMembers(ctx, g.ID)
	if err := p.r.skip(err, "Skipping guild members", guildField); err != nil {
		return err
	}
	for _, m := range members {
		if m.User == nil {
			continue
		}
		if err := p.r.User.TraverseDown(ctx, run, m.User); err != nil {
			return err
		}
	}

	roles, err := src.GuildRoles(ctx, g.ID)
	if err := p.r.skip(err, "Skipping guild roles", guildField); err != nil {
		return err
	}
	for _, role := range roles {
		if err := p.r.Role.TraverseDown(ctx, run, RoleNode{GuildID: g.ID, Role: role}); err != nil {
			return err
		}
	}

	emojis, err := src.GuildEmojis(ctx, g.ID)
	if err := p.r.skip(err, "Skipping guild emoji", guildField); err != nil {
		return err
	}
	for _, e := range emojis {
		if err := p.r.Emoji.TraverseDown(ctx, run, e); err != nil {
			return err
		}
	}

	channels, err := run.guildChannels(ctx, src, g.ID)
	if err := p.r.skip(err, "Skipping guild channels", guildField); err != nil {
		return err
	}
	for _, ch := range channels {
		if ch.ParentID != "" || ch.Type == discordgo.ChannelTypeGuildCategory {
			continue
		}
		if err := p.r.skip(p.r.Channel.TraverseDown(ctx, run, ch), "Skipping channel", guildField, zap.String("channel_id", ch.ID)); err != nil {
			return err
		}
	}
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildCategory {
			continue
		}
		if err := p.r.Category.TraverseDown(ctx, run, ch); err != nil {
			return err
		}
	}
	return nil
}

// ensure persists the guild with guildID unless this run already did.
func (p *GuildProcessor) ensure(ctx context.Context, run *Run, guildID string) error {
	if run.Seen(KindGuild, guildID) {
		return nil
	}
	g, err := p.r.deps.Source.Guild(ctx, guildID)
	if err != nil {
		return err
	}
	return p.TraverseUp(ctx, run, g)
}

// CategoryProcessor persists categories.
type CategoryProcessor struct {
	r      *Registry
	mapper mapper.CategoryMapper
}

// TraverseUp persists the guild, then the category.
func (p *CategoryProcessor) TraverseUp(ctx context.Context, run *Run, c *discordgo.Channel) error {
	if run.Seen(KindCategory, c.ID) {
		return nil
	}
	if err := p.r.Guild.ensure(ctx, run, c.GuildID); err != nil {
		return err
	}
	return p.Backup(ctx, run, c)
}

// Backup persists the category row.
func (p *CategoryProcessor) Backup(ctx context.Context, run *Run, c *discordgo.Channel) error {
	if run.Seen(KindCategory, c.ID) {
		return nil
	}
	row, err := p.mapper.Map(c)
	if err != nil {
		return err
	}
	if err := p.r.deps.Categories.Insert(ctx, row); err != nil {
		return err
	}
	run.remember(c)
	run.Visit(KindCategory, c.ID)
	return nil
}

// TraverseDown persists the category and the channels it contains.
func (p *CategoryProcessor) TraverseDown(ctx context.Context, run *Run, c *discordgo.Channel) error {
	if err := p.TraverseUp(ctx, run, c); err != nil {
		return err
	}

	channels, err := run.guildChannels(ctx, p.r.deps.Source, c.GuildID)
	if err := p.r.skip(err, "Skipping category channels", zap.String("category_id", c.ID)); err != nil {
		return err
	}
	for _, ch := range channels {
		if ch.ParentID != c.ID {
			continue
		}
		if err := p.r.skip(p.r.Channel.TraverseDown(ctx, run, ch), "Skipping channel", zap.String("channel_id", ch.ID)); err != nil {
			return err
		}
	}
	return nil
}

// RoleNode is a role of a guild.
type RoleNode struct {
	GuildID string
	Role    *discordgo.Role
}

// RoleProcessor persists roles.
type RoleProcessor struct {
	r      *Registry
	mapper mapper.RoleMapper
}

// TraverseUp persists the guild, then the role.
func (p *RoleProcessor) TraverseUp(ctx context.Context, run *Run, n RoleNode) error {
	if run.Seen(KindRole, n.Role.ID) {
		return nil
	}
	if err := p.r.Guild.ensure(ctx, run, n.GuildID); err != nil {
		return err
	}
	return p.Backup(ctx, run, n)
}

// Backup persists the role row.
func (p *RoleProcessor) Backup(ctx context.Context, run *Run, n RoleNode) error {
	if run.Seen(KindRole, n.Role.ID) {
		return nil
	}
	row, err := p.mapper.Map(n.GuildID, n.Role)
	if err != nil {
		return err
	}
	if err := p.r.deps.Roles.Insert(ctx, row); err != nil {
		return err
	}
	run.Visit(KindRole, n.Role.ID)
	return nil
}

// TraverseDown backs the role up directly; roles have no children and are only
// walked from their guild.
func (p *RoleProcessor) TraverseDown(ctx context.Context, run *Run, n RoleNode) error {
	return p.Backup(ctx, run, n)
}

// UserProcessor persists users.
type UserProcessor struct {
	r      *Registry
	mapper mapper.UserMapper
}

func (p *UserProcessor) TraverseUp(ctx context.Context, run *Run, u *discordgo.User) error {
	return p.Backup(ctx, run, u)
}

// Backup persists the user row, extending its name history.
func (p *UserProcessor) Backup(ctx context.Context, run *Run, u *discordgo.User) error {
	if run.Seen(KindUser, u.ID) {
		return nil
	}
	row, err := p.mapper.Map(u)
	if err != nil {
		return err
	}
	if err := p.r.deps.Users.Insert(ctx, row); err != nil {
		return err
	}
	run.Visit(KindUser, u.ID)
	return nil
}

func (p *UserProcessor) TraverseDown(ctx context.Context, run *Run, u *discordgo.User) error {
	return p.Backup(ctx, run, u)
}

// EmojiProcessor persists custom and Unicode emoji.
type EmojiProcessor struct {
	r      *Registry
	mapper mapper.EmojiMapper
}

func (p *EmojiProcessor) TraverseUp(ctx context.Context, run *Run, e *discordgo.Emoji) error {
	return p.Backup(ctx, run, e)
}

// Backup persists the emoji row.
func (p *EmojiProcessor) Backup(ctx context.Context, run *Run, e *discordgo.Emoji) error {
	id := p.mapper.ID(e)
	if run.Seen(KindEmoji, id) {
		return nil
	}
	if err := p.r.deps.Emojis.Insert(ctx, p.mapper.Map(e)); err != nil {
		return err
	}
	run.Visit(KindEmoji, id)
	return nil
}

func (p *EmojiProcessor) TraverseDown(ctx context.Context, run *Run, e *discordgo.Emoji) error {
	return p.Backup(ctx, run, e)
}
