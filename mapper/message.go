package mapper

import (
	"fmt"
	"strings"
	"time"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
)

// MessageMapper maps messages. Prefixes mark text commands.
type MessageMapper struct {
	Prefixes []string
}

// IsCommand reports whether content invokes a text command.
func (m MessageMapper) IsCommand(content string) bool {
	for _, prefix := range m.Prefixes {
		if prefix != "" && strings.HasPrefix(content, prefix) {
			return true
		}
	}
	return false
}

// Map converts msg, posted in parent, into a message row. A thread parent fills ThreadID,
// any other parent fills ChannelID.
func (m MessageMapper) Map(msg *discordgo.Message, parent *discordgo.Channel) (*models.Message, error) {
	if msg.Author == nil {
		return nil, fmt.Errorf("message %s has no author: %w", msg.ID, ErrUnsupported)
	}

	createdAt := msg.Timestamp.UTC()
	if createdAt.IsZero() {
		var err error
		if createdAt, err = CreatedAt(msg.ID); err != nil {
			return nil, err
		}
	}

	guildID := msg.GuildID
	if guildID == "" {
		guildID = parent.GuildID
	}

	row := &models.Message{
		ID:        msg.ID,
		GuildID:   guildID,
		AuthorID:  msg.Author.ID,
		Content:   msg.Content,
		CreatedAt: createdAt,
		IsCommand: m.IsCommand(msg.Content) ||
			msg.Type == discordgo.MessageTypeChatInputCommand ||
			msg.Type == discordgo.MessageTypeContextMenuCommand,
	}
	if parent.IsThread() {
		row.ThreadID = &parent.ID
	} else {
		row.ChannelID = &parent.ID
	}
	if msg.EditedTimestamp != nil {
		editedAt := msg.EditedTimestamp.UTC()
		row.EditedAt = &editedAt
	}
	return row, nil
}

// AttachmentMapper maps message attachments.
type AttachmentMapper struct{}

// Map converts a into an attachment row of messageID.
func (AttachmentMapper) Map(messageID string, a *discordgo.MessageAttachment) *models.Attachment {
	return &models.Attachment{
		ID:        a.ID,
		MessageID: messageID,
		Filename:  a.Filename,
		URL:       a.URL,
	}
}

// ReactionMapper maps the members who reacted with one emoji.
type ReactionMapper struct{}

// Map builds the reaction row of emojiID on messageID.
func (ReactionMapper) Map(messageID, emojiID string, memberIDs []string, createdAt time.Time) *models.Reaction {
	return &models.Reaction{
		MessageID: messageID,
		EmojiID:   emojiID,
		MemberIDs: memberIDs,
		CreatedAt: createdAt.UTC(),
	}
}

// MessageEmojiMapper maps emoji usage inside message content.
type MessageEmojiMapper struct{}

// Map builds the usage row of emojiID in messageID.
func (MessageEmojiMapper) Map(messageID, emojiID string, count int) *models.MessageEmoji {
	return &models.MessageEmoji{
		MessageID: messageID,
		EmojiID:   emojiID,
		Count:     count,
	}
}
