package backup

import (
	"context"

	"discord-archiver/mapper"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// MessageProcessor persists messages of channels and threads.
type MessageProcessor struct {
	r      *Registry
	mapper mapper.MessageMapper
}

// parent resolves the channel or thread msg was posted in and ensures it is persisted.
// ok is false when the parent is not archived.
func (p *MessageProcessor) parent(ctx context.Context, run *Run, msg *discordgo.Message) (parent *discordgo.Channel, ok bool, err error) {
	parent, err = run.channel(ctx, p.r.deps.Source, msg.ChannelID)
	if err != nil {
		return nil, false, err
	}

	if parent.IsThread() {
		if err := p.r.Thread.TraverseUp(ctx, run, parent); err != nil {
			return nil, false, err
		}
		return parent, run.Seen(KindThread, parent.ID), nil
	}
	if err := p.r.Channel.TraverseUp(ctx, run, parent); err != nil {
		return nil, false, err
	}
	return parent, run.Seen(KindChannel, parent.ID), nil
}

// TraverseUp persists the channel or thread and the author, then the message.
func (p *MessageProcessor) TraverseUp(ctx context.Context, run *Run, msg *discordgo.Message) error {
	if msg.Author == nil || run.Seen(KindMessage, msg.ID) {
		return nil
	}
	if _, ok, err := p.parent(ctx, run, msg); err != nil || !ok {
		return err
	}
	if err := p.r.User.TraverseUp(ctx, run, msg.Author); err != nil {
		return err
	}
	return p.Backup(ctx, run, msg)
}

// Backup persists the message row and counts it against the throttle.
func (p *MessageProcessor) Backup(ctx context.Context, run *Run, msg *discordgo.Message) error {
	if run.Seen(KindMessage, msg.ID) {
		return nil
	}
	parent, err := run.channel(ctx, p.r.deps.Source, msg.ChannelID)
	if err != nil {
		return err
	}
	row, err := p.mapper.Map(msg, parent)
	if err != nil {
		return err
	}
	if err := p.r.deps.Messages.Insert(ctx, row); err != nil {
		return err
	}
	run.Visit(KindMessage, msg.ID)
	return p.r.deps.Throttle.Tick(ctx)
}

// TraverseDown persists the message, its attachments, its reactions and the emoji used
// in its content.
func (p *MessageProcessor) TraverseDown(ctx context.Context, run *Run, msg *discordgo.Message) error {
	if err := p.TraverseUp(ctx, run, msg); err != nil {
		return err
	}
	if !run.Seen(KindMessage, msg.ID) {
		return nil
	}

	for _, a := range msg.Attachments {
		if err := p.r.Attachment.TraverseDown(ctx, run, AttachmentNode{Message: msg, Attachment: a}); err != nil {
			return err
		}
	}

	for _, reaction := range msg.Reactions {
		if reaction.Emoji == nil {
			continue
		}
		err := p.r.Reaction.TraverseDown(ctx, run, ReactionNode{Message: msg, Emoji: reaction.Emoji})
		if err := p.r.skip(err, "Skipping message reaction", zap.String("message_id", msg.ID)); err != nil {
			return err
		}
	}

	var (
		order  []string
		emojis = make(map[string]*discordgo.Emoji)
		counts = make(map[string]int)
	)
	for _, e := range p.r.Emoji.mapper.Parse(msg.Content) {
		id := p.r.Emoji.mapper.ID(e)
		if _, ok := emojis[id]; !ok {
			order = append(order, id)
			emojis[id] = e
		}
		counts[id]++
	}
	for _, id := range order {
		node := MessageEmojiNode{Message: msg, Emoji: emojis[id], Count: counts[id]}
		if err := p.r.MessageEmoji.TraverseDown(ctx, run, node); err != nil {
			return err
		}
	}
	return nil
}

// ReactionNode is the reaction of one emoji on a message.
type ReactionNode struct {
	Message *discordgo.Message
	Emoji   *discordgo.Emoji
}

// ReactionProcessor persists the members who reacted to messages.
type ReactionProcessor struct {
	r      *Registry
	mapper mapper.ReactionMapper
}

func (p *ReactionProcessor) key(n ReactionNode) string {
	return n.Message.ID + "/" + p.r.Emoji.mapper.ID(n.Emoji)
}

// TraverseUp persists the message and the emoji, then the reaction.
func (p *ReactionProcessor) TraverseUp(ctx context.Context, run *Run, n ReactionNode) error {
	if run.Seen(KindReaction, p.key(n)) {
		return nil
	}
	if err := p.r.Message.TraverseUp(ctx, run, n.Message); err != nil {
		return err
	}
	if !run.Seen(KindMessage, n.Message.ID) {
		return nil
	}
	if err := p.r.Emoji.TraverseUp(ctx, run, n.Emoji); err != nil {
		return err
	}
	return p.Backup(ctx, run, n)
}

// Backup fetches the current reacting members and replaces the stored set.
func (p *ReactionProcessor) Backup(ctx context.Context, run *Run, n ReactionNode) error {
	key := p.key(n)
	if run.Seen(KindReaction, key) {
		return nil
	}

	users, err := p.r.deps.Source.MessageReactions(ctx, n.Message.ChannelID, n.Message.ID, n.Emoji)
	if err != nil {
		return err
	}
	memberIDs := make([]string, 0, len(users))
	for _, u := range users {
		memberIDs = append(memberIDs, u.ID)
	}

	row := p.mapper.Map(n.Message.ID, p.r.Emoji.mapper.ID(n.Emoji), memberIDs, p.r.deps.Now())
	if err := p.r.deps.Reactions.Insert(ctx, row); err != nil {
		return err
	}
	run.Visit(KindReaction, key)
	return nil
}

func (p *ReactionProcessor) TraverseDown(ctx context.Context, run *Run, n ReactionNode) error {
	return p.TraverseUp(ctx, run, n)
}

// AttachmentNode is a file attached to a message.
type AttachmentNode struct {
	Message    *discordgo.Message
	Attachment *discordgo.MessageAttachment
}

// AttachmentProcessor persists attachments.
type AttachmentProcessor struct {
	r      *Registry
	mapper mapper.AttachmentMapper
}

// TraverseUp persists the message, then the attachment.
func (p *AttachmentProcessor) TraverseUp(ctx context.Context, run *Run, n AttachmentNode) error {
	if run.Seen(KindAttachment, n.Attachment.ID) {
		return nil
	}
	if err := p.r.Message.TraverseUp(ctx, run, n.Message); err != nil {
		return err
	}
	if !run.Seen(KindMessage, n.Message.ID) {
		return nil
	}
	return p.Backup(ctx, run, n)
}

// Backup persists the attachment row.
func (p *AttachmentProcessor) Backup(ctx context.Context, run *Run, n AttachmentNode) error {
	if run.Seen(KindAttachment, n.Attachment.ID) {
		return nil
	}
	if err := p.r.deps.Attachments.Insert(ctx, p.mapper.Map(n.Message.ID, n.Attachment)); err != nil {
		return err
	}
	run.Visit(KindAttachment, n.Attachment.ID)
	return nil
}

func (p *AttachmentProcessor) TraverseDown(ctx context.Context, run *Run, n AttachmentNode) error {
	return p.TraverseUp(ctx, run, n)
}

// MessageEmojiNode counts one emoji in the content of a message.
type MessageEmojiNode struct {
	Message *discordgo.Message
	Emoji   *discordgo.Emoji
	Count   int
}

// MessageEmojiProcessor persists emoji usage in message content.
type MessageEmojiProcessor struct {
	r      *Registry
	mapper mapper.MessageEmojiMapper
}

func (p *MessageEmojiProcessor) key(n MessageEmojiNode) string {
	return n.Message.ID + "/" + p.r.Emoji.mapper.ID(n.Emoji)
}

// TraverseUp persists the message and the emoji, then the usage count.
func (p *MessageEmojiProcessor) TraverseUp(ctx context.Context, run *Run, n MessageEmojiNode) error {
	if run.Seen(KindMessageEmoji, p.key(n)) {
		return nil
	}
	if err := p.r.Message.TraverseUp(ctx, run, n.Message); err != nil {
		return err
	}
	if !run.Seen(KindMessage, n.Message.ID) {
		return nil
	}
	if err := p.r.Emoji.TraverseUp(ctx, run, n.Emoji); err != nil {
		return err
	}
	return p.Backup(ctx, run, n)
}

// Backup persists the usage row.
func (p *MessageEmojiProcessor) Backup(ctx context.Context, run *Run, n MessageEmojiNode) error {
	key := p.key(n)
	if run.Seen(KindMessageEmoji, key) {
		return nil
	}
	row := p.mapper.Map(n.Message.ID, p.r.Emoji.mapper.ID(n.Emoji), n.Count)
	if err := p.r.deps.MessageEmojis.Insert(ctx, row); err != nil {
		return err
	}
	run.Visit(KindMessageEmoji, key)
	return nil
}

func (p *MessageEmojiProcessor) TraverseDown(ctx context.Context, run *Run, n MessageEmojiNode) error {
	return p.TraverseUp(ctx, run, n)
}
