package backup

import (
	"context"

	"discord-archiver/mapper"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ChannelProcessor persists text, news and forum channels. Other channel kinds and
// ignored channels are skipped silently.
type ChannelProcessor struct {
	r      *Registry
	mapper mapper.ChannelMapper
}

// CanMap reports whether ch is archived at all.
func (p *ChannelProcessor) CanMap(ch *discordgo.Channel) bool {
	return p.mapper.CanMap(ch) && !p.r.deps.Config.IgnoredChannel(ch.GuildID, ch.ID)
}

// TraverseUp persists the guild and category of the channel, then the channel.
func (p *ChannelProcessor) TraverseUp(ctx context.Context, run *Run, ch *discordgo.Channel) error {
	if !p.CanMap(ch) || run.Seen(KindChannel, ch.ID) {
		return nil
	}
	if err := p.r.Guild.ensure(ctx, run, ch.GuildID); err != nil {
		return err
	}
	if ch.ParentID != "" && !run.Seen(KindCategory, ch.ParentID) {
		category, err := run.channel(ctx, p.r.deps.Source, ch.ParentID)
		if err != nil {
			return err
		}
		if err := p.r.Category.TraverseUp(ctx, run, category); err != nil {
			return err
		}
	}
	return p.Backup(ctx, run, ch)
}

// Backup persists the channel row.
func (p *ChannelProcessor) Backup(ctx context.Context, run *Run, ch *discordgo.Channel) error {
	if !p.CanMap(ch) || run.Seen(KindChannel, ch.ID) {
		return nil
	}
	row, err := p.mapper.Map(ch)
	if err != nil {
		return err
	}
	if err := p.r.deps.Channels.Insert(ctx, row); err != nil {
		return err
	}
	run.remember(ch)
	run.Visit(KindChannel, ch.ID)
	return nil
}

// TraverseDown persists the channel, its threads and its message history. Failed reads
// from Discord below the channel are logged and skipped.
func (p *ChannelProcessor) TraverseDown(ctx context.Context, run *Run, ch *discordgo.Channel) error {
	if !p.CanMap(ch) {
		return nil
	}
	if err := p.TraverseUp(ctx, run, ch); err != nil {
		return err
	}
	channelField := zap.String("channel_id", ch.ID)

	threads, err := p.r.deps.Source.ChannelThreads(ctx, ch.ID)
	if err := p.r.skip(err, "Skipping channel threads", channelField); err != nil {
		return err
	}
	for _, thread := range threads {
		if err := p.r.skip(p.r.Thread.TraverseDown(ctx, run, thread), "Skipping thread", channelField, zap.String("thread_id", thread.ID)); err != nil {
			return err
		}
	}

	// Forum posts only live in threads.
	if ch.Type == discordgo.ChannelTypeGuildForum {
		return nil
	}
	return p.r.skip(p.r.backfill(ctx, run, ch), "Skipping channel history", channelField)
}

// ThreadProcessor persists threads. A thread whose parent channel is unknown,
// unreachable or not archived is skipped.
type ThreadProcessor struct {
	r      *Registry
	mapper mapper.ThreadMapper
}

// TraverseUp persists the parent channel, then the thread.
func (p *ThreadProcessor) TraverseUp(ctx context.Context, run *Run, t *discordgo.Channel) error {
	if t.ParentID == "" || run.Seen(KindThread, t.ID) {
		return nil
	}

	parent, err := run.channel(ctx, p.r.deps.Source, t.ParentID)
	if err != nil {
		p.r.logger().Debug("Thread parent is not reachable", zap.String("thread_id", t.ID), zap.Error(err))
		return nil
	}
	if err := p.r.Channel.TraverseUp(ctx, run, parent); err != nil {
		return err
	}
	if !run.Seen(KindChannel, parent.ID) {
		return nil
	}
	return p.Backup(ctx, run, t)
}

// Backup persists the thread row.
func (p *ThreadProcessor) Backup(ctx context.Context, run *Run, t *discordgo.Channel) error {
	if run.Seen(KindThread, t.ID) {
		return nil
	}
	row, err := p.mapper.Map(t)
	if err != nil {
		return err
	}
	if err := p.r.deps.Threads.Insert(ctx, row); err != nil {
		return err
	}
	run.remember(t)
	run.Visit(KindThread, t.ID)
	return nil
}

// TraverseDown persists the thread and its message history.
func (p *ThreadProcessor) TraverseDown(ctx context.Context, run *Run, t *discordgo.Channel) error {
	if err := p.TraverseUp(ctx, run, t); err != nil {
		return err
	}
	if !run.Seen(KindThread, t.ID) {
		return nil
	}
	return p.r.skip(p.r.backfill(ctx, run, t), "Skipping thread history", zap.String("thread_id", t.ID))
}
