package bot

import (
	"fmt"

	"discord-archiver/command"
	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Intents are the gateway events the archiver listens to.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildEmojis |
	discordgo.IntentsMessageContent

// Bot encapsulates the bot's state.
type Bot struct {
	Session   *discordgo.Session
	cfg       *models.Config
	logger    *zap.Logger
	scheduler *Scheduler
}

// NewBot creates and initializes a new Bot instance.
func NewBot(cfg *models.Config, logger *zap.Logger) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = Intents

	return &Bot{
		Session: dg,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Start registers handlers, opens the bot's session, registers the slash commands and
// starts the scheduler.
func (b *Bot) Start(registerHandlers func(*Bot), scheduler *Scheduler) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	cmds, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", command.GetCommandDefinitions())
	if err != nil {
		b.logger.Error("Cannot register slash commands", zap.Error(err))
	} else {
		b.logger.Info("Registered slash commands", zap.Int("count", len(cmds)))
	}

	if scheduler != nil {
		if err := scheduler.Start(b.cfg.Bot.BackupAtStartup); err != nil {
			b.Session.Close()
			return err
		}
		b.scheduler = scheduler
	}

	b.logger.Info("Bot is now running. Press CTRL-C to exit.", zap.String("user", b.Session.State.User.Username))
	return nil
}

// Stop stops the scheduled jobs, waits for a running one to return, and closes the
// session.
func (b *Bot) Stop() {
	if b.scheduler != nil {
		<-b.scheduler.Stop().Done()
	}
	if b.Session != nil {
		if err := b.Session.Close(); err != nil {
			b.logger.Warn("Error closing session", zap.Error(err))
		}
	}
	b.logger.Info("Bot stopped gracefully.")
}
