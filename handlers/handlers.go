// Package handlers turns gateway events into queued archive writes and serves the slash
// commands.
package handlers

import (
	"context"
	"sync"

	"discord-archiver/backup"
	"discord-archiver/bot"
	"discord-archiver/database"
	"discord-archiver/models"
	"discord-archiver/queue"
	"discord-archiver/source"
	"discord-archiver/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Backupper runs on-demand backups.
type Backupper interface {
	FullBackup(ctx context.Context) error
	Resync(ctx context.Context) error
	Running() bool
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Registry *backup.Registry
	Writer   *queue.Writer
	Repos    *database.Repositories
	Source   source.Source
	Scanner  Backupper
	Auth     *utils.Auth
	Logger   *zap.Logger

	// Context bounds the backups started by commands.
	Context context.Context
}

// Handler holds the gateway callbacks.
type Handler struct {
	deps Deps
	wg   sync.WaitGroup
}

// New creates a Handler.
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Auth == nil {
		deps.Auth = utils.NewAuth(models.CommandsConfig{})
	}
	return &Handler{deps: deps}
}

// Register all handlers to the bot.
func (h *Handler) Register(b *bot.Bot) {
	s := b.Session

	s.AddHandler(h.InteractionCreate)

	s.AddHandler(h.MessageCreate)
	s.AddHandler(h.MessageUpdate)
	s.AddHandler(h.MessageDelete)
	s.AddHandler(h.MessageDeleteBulk)
	s.AddHandler(h.MessageReactionAdd)
	s.AddHandler(h.MessageReactionRemove)
	s.AddHandler(h.MessageReactionRemoveAll)

	s.AddHandler(h.ChannelCreate)
	s.AddHandler(h.ChannelUpdate)
	s.AddHandler(h.ChannelDelete)
	s.AddHandler(h.ThreadCreate)
	s.AddHandler(h.ThreadUpdate)
	s.AddHandler(h.ThreadDelete)

	s.AddHandler(h.GuildCreate)
	s.AddHandler(h.GuildUpdate)
	s.AddHandler(h.GuildDelete)
	s.AddHandler(h.GuildRoleCreate)
	s.AddHandler(h.GuildRoleUpdate)
	s.AddHandler(h.GuildRoleDelete)
	s.AddHandler(h.GuildMemberAdd)
	s.AddHandler(h.GuildMemberUpdate)
	s.AddHandler(h.GuildEmojisUpdate)

	// Add a ready handler to log when the bot is connected.
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		h.deps.Logger.Info("Logged in", zap.String("username", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	})
}

// Wait blocks until the backups started by commands have returned.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) insert(name string, job queue.Job) {
	h.deps.Writer.EnqueueInsert(name, job)
}

func (h *Handler) update(name string, job queue.Job) {
	h.deps.Writer.EnqueueUpdate(name, job)
}

func (h *Handler) delete(name string, job func(ctx context.Context) error) {
	h.deps.Writer.EnqueueDelete(name, func(ctx context.Context, _ *backup.Run) error {
		return job(ctx)
	})
}
