package handlers

import (
	"context"

	"discord-archiver/backup"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// GuildCreate queues the backup of a guild the bot joined or reconnected to.
func (h *Handler) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Unavailable {
		return
	}
	guild := g.Guild
	h.insert("guild_create:"+guild.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Guild.TraverseUp(ctx, run, guild)
	})
}

// GuildUpdate queues the backup of a renamed guild.
func (h *Handler) GuildUpdate(s *discordgo.Session, g *discordgo.GuildUpdate) {
	guild := g.Guild
	h.update("guild_update:"+guild.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Guild.TraverseUp(ctx, run, guild)
	})
}

// GuildDelete queues the soft delete of a guild the bot left. Outages are ignored.
func (h *Handler) GuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		h.deps.Logger.Warn("Guild became unavailable", zap.String("guild_id", g.ID))
		return
	}
	id := g.ID
	h.delete("guild_delete:"+id, func(ctx context.Context) error {
		return h.deps.Repos.Guilds.SoftDelete(ctx, id)
	})
}

// GuildRoleCreate queues the backup of a new role.
func (h *Handler) GuildRoleCreate(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
	node := backup.RoleNode{GuildID: r.GuildID, Role: r.Role}
	h.insert("role_create:"+r.Role.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Role.TraverseUp(ctx, run, node)
	})
}

// GuildRoleUpdate queues the backup of a changed role.
func (h *Handler) GuildRoleUpdate(s *discordgo.Session, r *discordgo.GuildRoleUpdate) {
	node := backup.RoleNode{GuildID: r.GuildID, Role: r.Role}
	h.update("role_update:"+r.Role.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Role.TraverseUp(ctx, run, node)
	})
}

// GuildRoleDelete queues the soft delete of a role.
func (h *Handler) GuildRoleDelete(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
	id := r.RoleID
	h.delete("role_delete:"+id, func(ctx context.Context) error {
		return h.deps.Repos.Roles.SoftDelete(ctx, id)
	})
}

// GuildMemberAdd queues the backup of a member who joined.
func (h *Handler) GuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	user := m.User
	h.insert("member_add:"+user.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.User.TraverseUp(ctx, run, user)
	})
}

// GuildMemberUpdate queues the backup of a member so a new name joins the history.
func (h *Handler) GuildMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.Member == nil || m.User == nil {
		return
	}
	user := m.User
	h.update("member_update:"+user.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.User.TraverseUp(ctx, run, user)
	})
}

// GuildEmojisUpdate queues the backup of the guild's custom emoji.
func (h *Handler) GuildEmojisUpdate(s *discordgo.Session, e *discordgo.GuildEmojisUpdate) {
	emojis := e.Emojis
	h.update("emojis_update:"+e.GuildID, func(ctx context.Context, run *backup.Run) error {
		for _, emoji := range emojis {
			if err := h.deps.Registry.Emoji.TraverseUp(ctx, run, emoji); err != nil {
				return err
			}
		}
		return nil
	})
}
