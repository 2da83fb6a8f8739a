package handlers

import (
	"errors"
	"fmt"

	"discord-archiver/command"
	"discord-archiver/scanner"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// handleBackup handles the logic for the /backup command.
func (h *Handler) handleBackup(r Responder, i *discordgo.InteractionCreate) {
	mode := command.BackupModeFull
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "mode" {
			mode = opt.StringValue()
		}
	}

	if h.deps.Scanner.Running() {
		h.reply(r, i, "⏳ A backup is already running.")
		return
	}

	// Respond to the interaction immediately.
	h.reply(r, i, fmt.Sprintf("Received command to start a **%s** backup.", mode))

	// Run the backup in a goroutine.
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx := h.deps.Context
		var err error
		if mode == command.BackupModeResync {
			err = h.deps.Scanner.Resync(ctx)
		} else {
			err = h.deps.Scanner.FullBackup(ctx)
		}

		switch {
		case errors.Is(err, scanner.ErrBusy):
			h.followup(r, i, "⏳ A backup is already running.")
		case err != nil:
			h.deps.Logger.Error("Manual backup failed", zap.String("mode", mode), zap.Error(err))
			h.followup(r, i, fmt.Sprintf("❌ Backup (%s) failed: %v", mode, err))
		default:
			h.followup(r, i, fmt.Sprintf("✅ Backup (%s) has completed.", mode))
		}
	}()
}

// handlePing handles the logic for the /ping command.
func (h *Handler) handlePing(r Responder, i *discordgo.InteractionCreate) {
	err := r.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
	if err != nil {
		h.deps.Logger.Warn("Failed to respond to ping", zap.Error(err))
	}
}
