package handlers

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"discord-archiver/backup"
	"discord-archiver/database"
	"discord-archiver/mapper"
	"discord-archiver/models"
	"discord-archiver/queue"
	"discord-archiver/scanner"
	"discord-archiver/source/sourcetest"
	"discord-archiver/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repos   *database.Repositories
	src     *sourcetest.Fake
	writer  *queue.Writer
	scanner *fakeScanner
	handler *Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(models.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "archive.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetClock(func() time.Time { return now })

	f := &fixture{
		repos:   database.NewRepositories(db),
		src:     sourcetest.New(),
		writer:  queue.NewWriter(queue.Limits{}, zap.NewNop()),
		scanner: &fakeScanner{},
	}
	registry := backup.New(backup.Deps{
		Source: f.src,
		Now:    func() time.Time { return now },
	}.WithRepositories(f.repos))

	f.handler = New(Deps{
		Registry: registry,
		Writer:   f.writer,
		Repos:    f.repos,
		Source:   f.src,
		Scanner:  f.scanner,
		Auth: utils.NewAuth(models.CommandsConfig{Auth: models.AuthConfig{
			Developers: []string{"dev"},
		}}),
		Context: t.Context(),
	})

	f.src.GuildList = []*discordgo.Guild{{ID: "1", Name: "Guild"}}
	f.src.AddChannel(
		&discordgo.Channel{ID: "2", GuildID: "1", Name: "Category", Type: discordgo.ChannelTypeGuildCategory},
		&discordgo.Channel{ID: "3", GuildID: "1", ParentID: "2", Name: "general", Type: discordgo.ChannelTypeGuildText},
	)
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	stats, err := f.writer.Flush(t.Context())
	require.NoError(t, err)
	require.Zero(t, stats.Dropped)
}

func message(id, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		GuildID:   "1",
		ChannelID: "3",
		Content:   content,
		Timestamp: now,
		Author:    &discordgo.User{ID: "5", Username: "user"},
	}
}

func TestMessageCreate(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	f.handler.MessageCreate(nil, &discordgo.MessageCreate{Message: message("4", "hello")})
	inserts, _, _ := f.writer.Len()
	assert.Equal(t, 1, inserts)
	f.flush(t)

	msg, err := f.repos.Messages.FindByID(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)

	_, err = f.repos.Categories.FindByID(ctx, "2")
	require.NoError(t, err, "ancestors are persisted with the message")
}

func TestMessageCreate_IgnoresDirectMessages(t *testing.T) {
	f := setup(t)
	dm := message("4", "hello")
	dm.GuildID = ""

	f.handler.MessageCreate(nil, &discordgo.MessageCreate{Message: dm})
	inserts, updates, deletes := f.writer.Len()
	assert.Zero(t, inserts+updates+deletes)
}

func TestMessageUpdate_RefetchesPartialMessages(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	f.handler.MessageCreate(nil, &discordgo.MessageCreate{Message: message("4", "hello")})
	f.flush(t)

	f.src.Messages["3"] = []*discordgo.Message{message("4", "edited")}
	f.handler.MessageUpdate(nil, &discordgo.MessageUpdate{Message: &discordgo.Message{ID: "4", GuildID: "1", ChannelID: "3"}})
	f.flush(t)

	msg, err := f.repos.Messages.FindByID(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "edited", msg.Content)
	assert.NotNil(t, msg.EditedAt)
}

func TestMessageDelete(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	f.handler.MessageCreate(nil, &discordgo.MessageCreate{Message: message("4", "hello")})
	f.handler.MessageCreate(nil, &discordgo.MessageCreate{Message: message("6", "bye")})
	f.flush(t)

	f.handler.MessageDelete(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "4", GuildID: "1", ChannelID: "3"}})
	f.handler.MessageDeleteBulk(nil, &discordgo.MessageDeleteBulk{Messages: []string{"6"}, GuildID: "1", ChannelID: "3"})
	_, _, deletes := f.writer.Len()
	assert.Equal(t, 2, deletes)
	f.flush(t)

	for _, id := range []string{"4", "6"} {
		msg, err := f.repos.Messages.FindByID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, msg.DeletedAt, "message %s is kept and marked deleted", id)
	}
}

func TestMessageReactionAdd_ReplacesMembers(t *testing.T) {
	f := setup(t)
	ctx := t.Context()
	heart := &discordgo.Emoji{Name: "\u2764"}
	heartID := mapper.EmojiMapper{}.ID(heart)

	msg := message("4", "hello")
	msg.Reactions = []*discordgo.MessageReactions{{Count: 1, Emoji: heart}}
	f.src.Messages["3"] = []*discordgo.Message{msg}
	f.src.Reactions[sourcetest.ReactionKey("4", heart)] = []*discordgo.User{{ID: "7"}}

	reaction := &discordgo.MessageReaction{UserID: "7", MessageID: "4", ChannelID: "3", GuildID: "1", Emoji: *heart}
	f.handler.MessageReactionAdd(nil, &discordgo.MessageReactionAdd{MessageReaction: reaction})
	f.flush(t)

	got, err := f.repos.Reactions.Find(ctx, "4", heartID)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, got.MemberIDs)

	f.src.Reactions[sourcetest.ReactionKey("4", heart)] = []*discordgo.User{{ID: "8"}, {ID: "7"}}
	f.handler.MessageReactionAdd(nil, &discordgo.MessageReactionAdd{MessageReaction: reaction})
	f.flush(t)

	got, err = f.repos.Reactions.Find(ctx, "4", heartID)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "8"}, got.MemberIDs)
}

func TestMessageReactionAdd_GoneMessageIsSkipped(t *testing.T) {
	f := setup(t)

	reaction := &discordgo.MessageReaction{MessageID: "404", ChannelID: "3", GuildID: "1"}
	f.handler.MessageReactionAdd(nil, &discordgo.MessageReactionAdd{MessageReaction: reaction})
	f.flush(t)
}

func TestGuildMemberUpdate_ExtendsNameHistory(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	f.handler.GuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "1", User: &discordgo.User{ID: "5", Username: "old"}}})
	f.flush(t)
	f.handler.GuildMemberUpdate(nil, &discordgo.GuildMemberUpdate{Member: &discordgo.Member{GuildID: "1", User: &discordgo.User{ID: "5", Username: "new"}}})
	f.flush(t)

	user, err := f.repos.Users.FindByID(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, user.Names)
}

func TestGuildDelete(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	f.handler.GuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "1", Name: "Guild"}})
	f.flush(t)

	f.handler.GuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1", Unavailable: true}})
	_, _, deletes := f.writer.Len()
	assert.Zero(t, deletes, "an outage is not a deletion")

	f.handler.GuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "1"}})
	f.flush(t)

	g, err := f.repos.Guilds.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.NotNil(t, g.DeletedAt)
}

func TestChannelEvents(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	f.handler.ChannelCreate(nil, &discordgo.ChannelCreate{Channel: f.src.Channels["3"]})
	f.handler.ThreadCreate(nil, &discordgo.ThreadCreate{Channel: &discordgo.Channel{
		ID: "9", GuildID: "1", ParentID: "3", Name: "thread", Type: discordgo.ChannelTypeGuildPublicThread,
	}})
	f.flush(t)

	_, err := f.repos.Channels.FindByID(ctx, "3")
	require.NoError(t, err)
	_, err = f.repos.Threads.FindByID(ctx, "9")
	require.NoError(t, err)

	f.handler.ThreadDelete(nil, &discordgo.ThreadDelete{Channel: &discordgo.Channel{ID: "9", GuildID: "1", ParentID: "3"}})
	f.handler.ChannelDelete(nil, &discordgo.ChannelDelete{Channel: &discordgo.Channel{ID: "2", GuildID: "1", Type: discordgo.ChannelTypeGuildCategory}})
	f.flush(t)

	thread, err := f.repos.Threads.FindByID(ctx, "9")
	require.NoError(t, err)
	assert.NotNil(t, thread.DeletedAt)
	category, err := f.repos.Categories.FindByID(ctx, "2")
	require.NoError(t, err)
	assert.NotNil(t, category.DeletedAt)
}

func TestGuildRoleEvents(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	role := &discordgo.GuildRole{GuildID: "1", Role: &discordgo.Role{ID: "10", Name: "mod"}}
	f.handler.GuildRoleCreate(nil, &discordgo.GuildRoleCreate{GuildRole: role})
	f.flush(t)

	got, err := f.repos.Roles.FindByID(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "mod", got.Name)

	f.handler.GuildRoleDelete(nil, &discordgo.GuildRoleDelete{GuildID: "1", RoleID: "10"})
	f.flush(t)

	got, err = f.repos.Roles.FindByID(ctx, "10")
	require.NoError(t, err)
	assert.NotNil(t, got.DeletedAt)
}

type fakeScanner struct {
	mu      sync.Mutex
	running bool
	calls   []string
	err     error
}

func (s *fakeScanner) FullBackup(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "full")
	return s.err
}

func (s *fakeScanner) Resync(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "resync")
	return s.err
}

func (s *fakeScanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type fakeResponder struct {
	mu        sync.Mutex
	responses []string
	followups []string
}

func (r *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp.Data.Content)
	return nil
}

func (r *fakeResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followups = append(r.followups, data.Content)
	return &discordgo.Message{}, nil
}

func interaction(userID, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:     "i1",
		Type:   discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data:   discordgo.ApplicationCommandInteractionData{Name: name, Options: options},
	}}
}

func TestDispatch(t *testing.T) {
	resync := &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "mode",
		Type:  discordgo.ApplicationCommandOptionString,
		Value: "resync",
	}

	tests := []struct {
		name      string
		i         *discordgo.InteractionCreate
		running   bool
		scanErr   error
		responses []string
		followups []string
		calls     []string
	}{
		{
			name:      "ping",
			i:         interaction("anyone", "ping"),
			responses: []string{"Pong!"},
		},
		{
			name:      "backup needs admin",
			i:         interaction("anyone", "backup"),
			responses: []string{"🚫 You are not allowed to run this command."},
		},
		{
			name:      "full backup",
			i:         interaction("dev", "backup"),
			responses: []string{"Received command to start a **full** backup."},
			followups: []string{"✅ Backup (full) has completed."},
			calls:     []string{"full"},
		},
		{
			name:      "resync",
			i:         interaction("dev", "backup", resync),
			responses: []string{"Received command to start a **resync** backup."},
			followups: []string{"✅ Backup (resync) has completed."},
			calls:     []string{"resync"},
		},
		{
			name:      "backup already running",
			i:         interaction("dev", "backup"),
			running:   true,
			responses: []string{"⏳ A backup is already running."},
		},
		{
			name:      "backup lost the race",
			i:         interaction("dev", "backup"),
			scanErr:   scanner.ErrBusy,
			responses: []string{"Received command to start a **full** backup."},
			followups: []string{"⏳ A backup is already running."},
			calls:     []string{"full"},
		},
		{
			name:      "unknown command",
			i:         interaction("dev", "markov"),
			responses: []string{"🚫 Unknown command."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.scanner.running = tt.running
			f.scanner.err = tt.scanErr
			r := &fakeResponder{}

			f.handler.dispatch(r, tt.i)
			f.handler.Wait()

			assert.Equal(t, tt.responses, r.responses)
			assert.Equal(t, tt.followups, r.followups)
			assert.Equal(t, tt.calls, f.scanner.calls)
		})
	}
}
