package handlers

import (
	"discord-archiver/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Responder answers interactions. *discordgo.Session implements it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var commandPermissions = map[string]string{
	"backup": utils.LevelAdmin,
	"ping":   utils.LevelGuest,
}

// InteractionCreate handles slash command interactions.
func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	h.dispatch(s, i)
}

// dispatch performs the permission check and routes the command to its handler.
func (h *Handler) dispatch(r Responder, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name

	if requiredLevel, ok := commandPermissions[commandName]; ok {
		if !h.deps.Auth.CheckPermission(i, requiredLevel) {
			h.reply(r, i, "🚫 You are not allowed to run this command.")
			return
		}
	}

	switch commandName {
	case "backup":
		h.handleBackup(r, i)
	case "ping":
		h.handlePing(r, i)
	default:
		h.reply(r, i, "🚫 Unknown command.")
	}
}

func (h *Handler) reply(r Responder, i *discordgo.InteractionCreate, content string) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.deps.Logger.Warn("Failed to respond to interaction", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}

func (h *Handler) followup(r Responder, i *discordgo.InteractionCreate, content string) {
	_, err := r.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		h.deps.Logger.Warn("Failed to send followup message", zap.String("interaction_id", i.ID), zap.Error(err))
	}
}
