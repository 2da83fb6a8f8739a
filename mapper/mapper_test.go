package mapper

import (
	"testing"
	"time"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownSnowflake was created at 2016-04-30T11:18:25.796Z.
const knownSnowflake = "175928847299117063"

var knownSnowflakeTime = time.Date(2016, 4, 30, 11, 18, 25, 796_000_000, time.UTC)

func TestCreatedAt(t *testing.T) {
	got, err := CreatedAt(knownSnowflake)
	require.NoError(t, err)
	assert.True(t, got.Equal(knownSnowflakeTime))

	_, err = CreatedAt("not-a-snowflake")
	assert.Error(t, err)
}

func TestChannelMapper(t *testing.T) {
	tests := []struct {
		name     string
		kind     discordgo.ChannelType
		canMap   bool
		wantType string
	}{
		{name: "text", kind: discordgo.ChannelTypeGuildText, canMap: true, wantType: models.ChannelTypeText},
		{name: "news", kind: discordgo.ChannelTypeGuildNews, canMap: true, wantType: models.ChannelTypeNews},
		{name: "forum", kind: discordgo.ChannelTypeGuildForum, canMap: true, wantType: models.ChannelTypeForum},
		{name: "voice", kind: discordgo.ChannelTypeGuildVoice},
		{name: "stage", kind: discordgo.ChannelTypeGuildStageVoice},
		{name: "category", kind: discordgo.ChannelTypeGuildCategory},
	}

	var m ChannelMapper
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &discordgo.Channel{ID: knownSnowflake, GuildID: "1", ParentID: "2", Name: tt.name, Type: tt.kind}
			assert.Equal(t, tt.canMap, m.CanMap(ch))

			row, err := m.Map(ch)
			if !tt.canMap {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, row.Type)
			require.NotNil(t, row.CategoryID)
			assert.Equal(t, "2", *row.CategoryID)
			assert.True(t, row.CreatedAt.Equal(knownSnowflakeTime))
		})
	}
}

func TestCategoryMapper_RejectsNonCategory(t *testing.T) {
	_, err := CategoryMapper{}.Map(&discordgo.Channel{ID: knownSnowflake, Type: discordgo.ChannelTypeGuildText})
	assert.ErrorIs(t, err, ErrUnsupported)

	row, err := CategoryMapper{}.Map(&discordgo.Channel{ID: knownSnowflake, GuildID: "1", Name: "Info", Position: 3, Type: discordgo.ChannelTypeGuildCategory})
	require.NoError(t, err)
	assert.Equal(t, 3, row.Position)
}

func TestThreadMapper(t *testing.T) {
	archivedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	thread := &discordgo.Channel{
		ID:             knownSnowflake,
		ParentID:       "3",
		Name:           "help",
		Type:           discordgo.ChannelTypeGuildPublicThread,
		ThreadMetadata: &discordgo.ThreadMetadata{Archived: true, ArchiveTimestamp: archivedAt},
	}

	row, err := ThreadMapper{}.Map(thread)
	require.NoError(t, err)
	assert.Equal(t, "3", row.ChannelID)
	require.NotNil(t, row.ArchivedAt)
	assert.True(t, row.ArchivedAt.Equal(archivedAt))

	thread.ParentID = ""
	_, err = ThreadMapper{}.Map(thread)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = ThreadMapper{}.Map(&discordgo.Channel{ID: knownSnowflake, Type: discordgo.ChannelTypeGuildText})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestUserMapper(t *testing.T) {
	row, err := UserMapper{}.Map(&discordgo.User{ID: knownSnowflake, Username: "ada", GlobalName: "Ada", Bot: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada"}, row.Names)
	assert.True(t, row.IsBot)
	assert.NotNil(t, row.AvatarURL)
}

func TestMessageMapper(t *testing.T) {
	m := MessageMapper{Prefixes: []string{"!", "?"}}
	edited := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	msg := &discordgo.Message{
		ID:              "4",
		Content:         "!ping",
		Timestamp:       time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		EditedTimestamp: &edited,
		Author:          &discordgo.User{ID: "5"},
	}

	channel := &discordgo.Channel{ID: "3", GuildID: "1", Type: discordgo.ChannelTypeGuildText}
	row, err := m.Map(msg, channel)
	require.NoError(t, err)
	assert.Equal(t, "1", row.GuildID)
	require.NotNil(t, row.ChannelID)
	assert.Equal(t, "3", *row.ChannelID)
	assert.Nil(t, row.ThreadID)
	assert.True(t, row.IsCommand)
	require.NotNil(t, row.EditedAt)
	assert.True(t, row.EditedAt.Equal(edited))

	thread := &discordgo.Channel{ID: "9", GuildID: "1", ParentID: "3", Type: discordgo.ChannelTypeGuildPublicThread}
	msg.Content = "plain text"
	row, err = m.Map(msg, thread)
	require.NoError(t, err)
	assert.Nil(t, row.ChannelID)
	require.NotNil(t, row.ThreadID)
	assert.Equal(t, "9", *row.ThreadID)
	assert.False(t, row.IsCommand)

	_, err = m.Map(&discordgo.Message{ID: "4"}, channel)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEmojiMapper_Map(t *testing.T) {
	var m EmojiMapper

	unicodeRow := m.Map(&discordgo.Emoji{Name: "👍"})
	assert.Equal(t, "128077", unicodeRow.ID)
	assert.Nil(t, unicodeRow.URL)

	custom := m.Map(&discordgo.Emoji{ID: "123456789012345678", Name: "dance", Animated: true})
	assert.Equal(t, "123456789012345678", custom.ID)
	require.NotNil(t, custom.URL)
	assert.Equal(t, discordgo.EndpointEmojiAnimated("123456789012345678"), *custom.URL)
	assert.True(t, custom.Animated)
}

func TestEmojiMapper_Parse(t *testing.T) {
	var m EmojiMapper

	emojis := m.Parse("hi <:pepe:123456789012345678> 👍👍 \u2764\ufe0f <a:dance:223456789012345678> \U0001F44D\U0001F3FD")

	var names []string
	for _, e := range emojis {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"pepe", "dance", "👍", "👍", "\u2764\ufe0f", "\U0001F44D\U0001F3FD"}, names)
	assert.Equal(t, "123456789012345678", emojis[0].ID)
	assert.True(t, emojis[1].Animated)
	assert.Empty(t, emojis[2].ID)

	assert.Empty(t, m.Parse("no emoji here: 100% <3"))
}
