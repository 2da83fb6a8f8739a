package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// maxEmbedFieldValue is Discord's limit on an embed field value.
const maxEmbedFieldValue = 1024

// NewLogger builds the process logger from the logging configuration. The returned
// function closes the log file, if any.
func NewLogger(cfg models.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	sink := zapcore.AddSync(os.Stdout)
	closeSink := func() {}
	if cfg.Output == "file" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.AddSync(file)
		closeSink = func() { file.Close() }
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, closeSink, nil
}

// EmbedSender posts embeds to a channel. *discordgo.Session implements it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AdminChannelCore is a zapcore.Core that posts log entries as embeds to the admin channel.
type AdminChannelCore struct {
	zapcore.LevelEnabler
	sender    EmbedSender
	channelID string
	fields    []zapcore.Field
}

// NewAdminChannelCore creates a core posting entries enabled by enab to channelID.
func NewAdminChannelCore(sender EmbedSender, channelID string, enab zapcore.LevelEnabler) *AdminChannelCore {
	return &AdminChannelCore{LevelEnabler: enab, sender: sender, channelID: channelID}
}

// WithAdminChannel tees logger into the admin channel for WARN and above. The logger is
// returned unchanged when channelID is empty.
func WithAdminChannel(logger *zap.Logger, sender EmbedSender, channelID string) *zap.Logger {
	if channelID == "" || sender == nil {
		logger.Warn("bot.admin_channel_id is not set, logging to the admin channel is disabled")
		return logger
	}
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, NewAdminChannelCore(sender, channelID, zapcore.WarnLevel))
	}))
}

// With adds structured context to the Core.
func (c *AdminChannelCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

// Check determines whether the supplied Entry should be logged.
func (c *AdminChannelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write sends the entry to the admin channel.
func (c *AdminChannelCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	_, err := c.sender.ChannelMessageSendEmbed(c.channelID, c.embed(ent, fields))
	return err
}

// Sync implements zapcore.Core.
func (c *AdminChannelCore) Sync() error {
	return nil
}

func (c *AdminChannelCore) embed(ent zapcore.Entry, fields []zapcore.Field) *discordgo.MessageEmbed {
	var color int
	switch {
	case ent.Level >= zapcore.ErrorLevel:
		color = ColorError
	case ent.Level == zapcore.WarnLevel:
		color = ColorWarn
	default:
		color = ColorInfo
	}

	module := ent.LoggerName
	if module == "" {
		module = "main"
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", ent.Level.CapitalString()),
		Color:     color,
		Timestamp: ent.Time.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Message", Value: truncate(ent.Message), Inline: true},
		},
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	if len(enc.Fields) > 0 {
		keys := make([]string, 0, len(enc.Fields))
		for k := range enc.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var details strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&details, "%s: %v\n", k, enc.Fields[k])
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Details",
			Value: truncate(strings.TrimSpace(details.String())),
		})
	}
	return embed
}

func truncate(s string) string {
	if s == "" {
		return "-"
	}
	runes := []rune(s)
	if len(runes) > maxEmbedFieldValue {
		return string(runes[:maxEmbedFieldValue-1]) + "…"
	}
	return s
}
