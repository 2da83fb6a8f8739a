// Package backup walks Discord's object graph and persists every node after its ancestors.
package backup

import (
	"context"
	"time"

	"discord-archiver/database"
	"discord-archiver/history"
	"discord-archiver/mapper"
	"discord-archiver/models"
	"discord-archiver/source"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Store persists rows of one kind.
type Store[T any] interface {
	Insert(ctx context.Context, row *T) error
}

// Processor is the traversal contract every entity kind implements.
type Processor[N any] interface {
	// TraverseUp persists the ancestors of node, then node itself.
	TraverseUp(ctx context.Context, run *Run, node N) error
	// Backup persists node alone.
	Backup(ctx context.Context, run *Run, node N) error
	// TraverseDown persists node and everything below it.
	TraverseDown(ctx context.Context, run *Run, node N) error
}

// Deps are the collaborators of the processors.
type Deps struct {
	Source source.Source

	Guilds        Store[models.Guild]
	Categories    Store[models.Category]
	Channels      Store[models.Channel]
	Threads       Store[models.Thread]
	Roles         Store[models.Role]
	Users         Store[models.User]
	Messages      Store[models.Message]
	Attachments   Store[models.Attachment]
	Reactions     Store[models.Reaction]
	Emojis        Store[models.Emoji]
	MessageEmojis Store[models.MessageEmoji]
	Checkpoints   history.Checkpoints

	Config   *models.Config
	Throttle *Throttle
	Logger   *zap.Logger
	Now      func() time.Time
}

// WithRepositories returns d with every store backed by repos.
func (d Deps) WithRepositories(repos *database.Repositories) Deps {
	d.Guilds = repos.Guilds
	d.Categories = repos.Categories
	d.Channels = repos.Channels
	d.Threads = repos.Threads
	d.Roles = repos.Roles
	d.Users = repos.Users
	d.Messages = repos.Messages
	d.Attachments = repos.Attachments
	d.Reactions = repos.Reactions
	d.Emojis = repos.Emojis
	d.MessageEmojis = repos.MessageEmojis
	d.Checkpoints = repos.Processes
	return d
}

// Registry holds one processor per entity kind, wired to each other.
type Registry struct {
	Bot          *BotProcessor
	Guild        *GuildProcessor
	Category     *CategoryProcessor
	Channel      *ChannelProcessor
	Thread       *ThreadProcessor
	Role         *RoleProcessor
	User         *UserProcessor
	Message      *MessageProcessor
	Reaction     *ReactionProcessor
	Attachment   *AttachmentProcessor
	Emoji        *EmojiProcessor
	MessageEmoji *MessageEmojiProcessor

	deps Deps
}

// New builds the processor graph.
func New(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config == nil {
		deps.Config = &models.Config{}
	}

	r := &Registry{deps: deps}
	r.Bot = &BotProcessor{r: r}
	r.Guild = &GuildProcessor{r: r}
	r.Category = &CategoryProcessor{r: r}
	r.Channel = &ChannelProcessor{r: r}
	r.Thread = &ThreadProcessor{r: r}
	r.Role = &RoleProcessor{r: r}
	r.User = &UserProcessor{r: r}
	r.Message = &MessageProcessor{r: r, mapper: mapper.MessageMapper{Prefixes: deps.Config.Bot.Prefixes}}
	r.Reaction = &ReactionProcessor{r: r}
	r.Attachment = &AttachmentProcessor{r: r}
	r.Emoji = &EmojiProcessor{r: r}
	r.MessageEmoji = &MessageEmojiProcessor{r: r}
	return r
}

func (r *Registry) logger() *zap.Logger {
	return r.deps.Logger
}

// skip swallows the failed read of an optional part of the graph.
func (r *Registry) skip(err error, msg string, fields ...zap.Field) error {
	if err == nil || !source.IsFetchError(err) {
		return err
	}
	r.logger().Warn(msg, append(fields, zap.Error(err))...)
	return nil
}

// backfill persists the message history of a channel or thread, window by window,
// until it is caught up.
func (r *Registry) backfill(ctx context.Context, run *Run, ch *discordgo.Channel) error {
	return r.Drain(ctx, run, history.NewMessageIterator(r.deps.Source, r.deps.Checkpoints, ch, r.logger(), r.deps.Now))
}

// Drain backs up every message the iterator hands out until its channel is caught up.
func (r *Registry) Drain(ctx context.Context, run *Run, it *history.MessageIterator) error {
	ch := it.Channel()

	var lastFrom time.Time
	for {
		w, err := it.History(ctx)
		if err != nil {
			return err
		}
		if w.Empty() {
			return nil
		}
		if !lastFrom.IsZero() && !w.From.After(lastFrom) {
			r.logger().Warn("History window did not advance, stopping",
				zap.String("channel_id", ch.ID),
				zap.Time("from", w.From))
			return nil
		}
		lastFrom = w.From

		for {
			msg, ok, err := w.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if msg.ChannelID == "" {
				msg.ChannelID = ch.ID
			}
			if err := r.Message.TraverseDown(ctx, run, msg); err != nil {
				return err
			}
		}
	}
}

var (
	_ Processor[*discordgo.Guild]   = (*GuildProcessor)(nil)
	_ Processor[*discordgo.Channel] = (*CategoryProcessor)(nil)
	_ Processor[*discordgo.Channel] = (*ChannelProcessor)(nil)
	_ Processor[*discordgo.Channel] = (*ThreadProcessor)(nil)
	_ Processor[RoleNode]           = (*RoleProcessor)(nil)
	_ Processor[*discordgo.User]    = (*UserProcessor)(nil)
	_ Processor[*discordgo.Message] = (*MessageProcessor)(nil)
	_ Processor[ReactionNode]       = (*ReactionProcessor)(nil)
	_ Processor[AttachmentNode]     = (*AttachmentProcessor)(nil)
	_ Processor[*discordgo.Emoji]   = (*EmojiProcessor)(nil)
	_ Processor[MessageEmojiNode]   = (*MessageEmojiProcessor)(nil)
)
