package scanner

import (
	"path/filepath"
	"testing"
	"time"

	"discord-archiver/backup"
	"discord-archiver/database"
	"discord-archiver/models"
	"discord-archiver/source"
	"discord-archiver/source/sourcetest"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var discordEpoch = time.UnixMilli(1420070400000).UTC()

type fixture struct {
	repos   *database.Repositories
	src     *sourcetest.Fake
	status  *database.StatusManager
	scanner *Scanner
	now     time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(models.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "archive.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		repos:  database.NewRepositories(db),
		src:    sourcetest.New(),
		status: database.NewStatusManager(filepath.Join(t.TempDir(), "status.json")),
		now:    discordEpoch.Add(3 * 24 * time.Hour),
	}
	now := func() time.Time { return f.now }
	db.SetClock(now)

	registry := backup.New(backup.Deps{
		Source: f.src,
		Logger: zap.NewNop(),
		Now:    now,
	}.WithRepositories(f.repos))

	f.scanner = New(Deps{
		Registry:    registry,
		Source:      f.src,
		Checkpoints: f.repos.Processes,
		Channels:    f.repos.Channels,
		Threads:     f.repos.Threads,
		Status:      f.status,
		Logger:      zap.NewNop(),
		Now:         now,
	})

	f.src.GuildList = []*discordgo.Guild{{ID: "1", Name: "Guild"}}
	f.src.AddChannel(
		&discordgo.Channel{ID: "2", GuildID: "1", Name: "Category", Type: discordgo.ChannelTypeGuildCategory},
		&discordgo.Channel{ID: "3", GuildID: "1", ParentID: "2", Name: "general", Type: discordgo.ChannelTypeGuildText},
	)
	f.src.Messages["3"] = []*discordgo.Message{{
		ID:        "4",
		ChannelID: "3",
		Content:   "hello",
		Author:    &discordgo.User{ID: "5", Username: "user"},
	}}
	return f
}

func TestFullBackup(t *testing.T) {
	f := setup(t)
	ctx := t.Context()

	require.NoError(t, f.scanner.FullBackup(ctx))

	msg, err := f.repos.Messages.FindByID(ctx, "4")
	require.NoError(t, err)
	require.NotNil(t, msg.ChannelID)
	assert.Equal(t, "3", *msg.ChannelID)
	assert.Equal(t, "1", msg.GuildID)

	user, err := f.repos.Users.FindByID(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, user.Names)

	runs := f.status.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, KindFull, runs[0].Kind)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Empty(t, runs[0].Error)
	assert.Equal(t, 1, runs[0].Counts["message"])
	assert.False(t, f.scanner.Running())
}

func TestFullBackup_RecordsFailure(t *testing.T) {
	f := setup(t)
	f.src.Errors["guilds:@me"] = sourcetest.Forbidden()

	err := f.scanner.FullBackup(t.Context())
	require.Error(t, err)

	runs := f.status.Runs()
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)
	assert.False(t, f.scanner.Running())
}

func TestFullBackup_RejectsConcurrentRun(t *testing.T) {
	f := setup(t)
	f.scanner.running.Store(true)

	assert.ErrorIs(t, f.scanner.FullBackup(t.Context()), ErrBusy)
	assert.ErrorIs(t, f.scanner.Resync(t.Context()), ErrBusy)
	assert.Empty(t, f.status.Runs())
}

func TestResync_FetchesStaleHistory(t *testing.T) {
	f := setup(t)
	ctx := t.Context()
	require.NoError(t, f.scanner.FullBackup(ctx))

	f.now = discordEpoch.Add(20 * 24 * time.Hour)
	lateAt := discordEpoch.Add(15 * 24 * time.Hour)
	late := &discordgo.Message{
		ID:        source.SnowflakeAt(lateAt),
		ChannelID: "3",
		Timestamp: lateAt,
		Author:    &discordgo.User{ID: "5", Username: "user"},
	}
	f.src.Messages["3"] = append(f.src.Messages["3"], late)

	require.NoError(t, f.scanner.Resync(ctx))

	_, err := f.repos.Messages.FindByID(ctx, late.ID)
	require.NoError(t, err)

	last, err := f.repos.Processes.FindLast(ctx, "3")
	require.NoError(t, err)
	assert.True(t, last.Finished())
	assert.True(t, last.ToDate.Equal(f.now))

	runs := f.status.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, KindResync, runs[1].Kind)
}

func TestResync_SoftDeletesVanishedChannels(t *testing.T) {
	f := setup(t)
	ctx := t.Context()
	require.NoError(t, f.scanner.FullBackup(ctx))

	delete(f.src.Channels, "3")
	f.now = discordEpoch.Add(20 * 24 * time.Hour)

	require.NoError(t, f.scanner.Resync(ctx))

	ch, err := f.repos.Channels.FindByID(ctx, "3")
	require.NoError(t, err)
	assert.NotNil(t, ch.DeletedAt)
}
