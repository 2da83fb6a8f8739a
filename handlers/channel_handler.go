package handlers

import (
	"context"

	"discord-archiver/backup"

	"github.com/bwmarrin/discordgo"
)

// ChannelCreate queues the backup of a new category or channel.
func (h *Handler) ChannelCreate(s *discordgo.Session, c *discordgo.ChannelCreate) {
	if c.GuildID == "" {
		return
	}
	ch := c.Channel
	h.insert("channel_create:"+ch.ID, h.channelJob(ch))
}

// ChannelUpdate queues the backup of a renamed or moved category or channel.
func (h *Handler) ChannelUpdate(s *discordgo.Session, c *discordgo.ChannelUpdate) {
	if c.GuildID == "" {
		return
	}
	ch := c.Channel
	h.update("channel_update:"+ch.ID, h.channelJob(ch))
}

// ChannelDelete queues the soft delete of a category or channel.
func (h *Handler) ChannelDelete(s *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.GuildID == "" {
		return
	}
	id, isCategory := c.ID, c.Type == discordgo.ChannelTypeGuildCategory
	h.delete("channel_delete:"+id, func(ctx context.Context) error {
		if isCategory {
			return h.deps.Repos.Categories.SoftDelete(ctx, id)
		}
		return h.deps.Repos.Channels.SoftDelete(ctx, id)
	})
}

func (h *Handler) channelJob(ch *discordgo.Channel) func(context.Context, *backup.Run) error {
	return func(ctx context.Context, run *backup.Run) error {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			return h.deps.Registry.Category.TraverseUp(ctx, run, ch)
		}
		return h.deps.Registry.Channel.TraverseUp(ctx, run, ch)
	}
}

// ThreadCreate queues the backup of a new thread.
func (h *Handler) ThreadCreate(s *discordgo.Session, t *discordgo.ThreadCreate) {
	thread := t.Channel
	h.insert("thread_create:"+thread.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Thread.TraverseUp(ctx, run, thread)
	})
}

// ThreadUpdate queues the backup of a renamed or archived thread.
func (h *Handler) ThreadUpdate(s *discordgo.Session, t *discordgo.ThreadUpdate) {
	thread := t.Channel
	h.update("thread_update:"+thread.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Thread.TraverseUp(ctx, run, thread)
	})
}

// ThreadDelete queues the soft delete of a thread.
func (h *Handler) ThreadDelete(s *discordgo.Session, t *discordgo.ThreadDelete) {
	id := t.ID
	h.delete("thread_delete:"+id, func(ctx context.Context) error {
		return h.deps.Repos.Threads.SoftDelete(ctx, id)
	})
}
