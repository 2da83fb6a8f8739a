package handlers

import (
	"context"

	"discord-archiver/backup"
	"discord-archiver/source"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// MessageCreate queues the backup of a new guild message.
func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil {
		return
	}
	msg := m.Message
	h.insert("message_create:"+msg.ID, func(ctx context.Context, run *backup.Run) error {
		return h.deps.Registry.Message.TraverseDown(ctx, run, msg)
	})
}

// MessageUpdate queues the backup of an edited message. Partial updates are completed
// from Discord when the job runs.
func (h *Handler) MessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.GuildID == "" {
		return
	}
	msg := m.Message
	h.update("message_update:"+msg.ID, func(ctx context.Context, run *backup.Run) error {
		if msg.Author == nil {
			return h.refetchMessage(ctx, run, msg.ChannelID, msg.ID)
		}
		return h.deps.Registry.Message.TraverseDown(ctx, run, msg)
	})
}

// MessageDelete queues the soft delete of a message.
func (h *Handler) MessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if m.GuildID == "" {
		return
	}
	id := m.ID
	h.delete("message_delete:"+id, func(ctx context.Context) error {
		return h.deps.Repos.Messages.SoftDelete(ctx, id)
	})
}

// MessageDeleteBulk queues the soft delete of every purged message.
func (h *Handler) MessageDeleteBulk(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	if m.GuildID == "" {
		return
	}
	for _, id := range m.Messages {
		h.delete("message_delete:"+id, func(ctx context.Context) error {
			return h.deps.Repos.Messages.SoftDelete(ctx, id)
		})
	}
}

// MessageReactionAdd queues a fresh backup of the message so its reactions are replaced.
func (h *Handler) MessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	h.reactionsChanged(r.GuildID, r.ChannelID, r.MessageID)
}

// MessageReactionRemove queues a fresh backup of the message so its reactions are replaced.
func (h *Handler) MessageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	h.reactionsChanged(r.GuildID, r.ChannelID, r.MessageID)
}

// MessageReactionRemoveAll queues a fresh backup of the message.
func (h *Handler) MessageReactionRemoveAll(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	h.reactionsChanged(r.GuildID, r.ChannelID, r.MessageID)
}

func (h *Handler) reactionsChanged(guildID, channelID, messageID string) {
	if guildID == "" {
		return
	}
	h.update("reaction:"+messageID, func(ctx context.Context, run *backup.Run) error {
		return h.refetchMessage(ctx, run, channelID, messageID)
	})
}

// refetchMessage backs up the current state of a message. A message that can no longer be
// read is skipped.
func (h *Handler) refetchMessage(ctx context.Context, run *backup.Run, channelID, messageID string) error {
	msg, err := h.deps.Source.ChannelMessage(ctx, channelID, messageID)
	if source.IsFetchError(err) {
		h.deps.Logger.Warn("Skipping message update", zap.String("message_id", messageID), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	return h.deps.Registry.Message.TraverseDown(ctx, run, msg)
}
