package models

import "time"

// Config is the root of config.yaml merged with config/guilds.json and the environment.
type Config struct {
	BotToken string                   `mapstructure:"bot_token"`
	Bot      BotConfig                `mapstructure:"bot"`
	Database DatabaseConfig           `mapstructure:"database"`
	Backup   BackupConfig             `mapstructure:"backup"`
	Guilds   map[string]GuildSettings `mapstructure:"guilds"` // key is guild_id
	Commands CommandsConfig           `mapstructure:"commands"`
	Logging  LoggingConfig            `mapstructure:"logging"`
	GRPC     GRPCConfig               `mapstructure:"grpc"`
}

// BotConfig holds the gateway-facing settings.
type BotConfig struct {
	Prefixes        []string `mapstructure:"prefixes"`
	AdminChannelID  string   `mapstructure:"admin_channel_id"`
	BackupAtStartup bool     `mapstructure:"backup_at_startup"`
}

// DatabaseConfig selects the storage driver.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite3 or postgres
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	StatusFile   string `mapstructure:"status_file"`
}

// BackupConfig carries the policy knobs of the backup engine.
type BackupConfig struct {
	ThrottleThreshold int           `mapstructure:"throttle_threshold"`
	ThrottleCooldown  time.Duration `mapstructure:"throttle_cooldown"`
	FlushInterval     time.Duration `mapstructure:"flush_interval"`
	FullSchedule      string        `mapstructure:"full_schedule"`
	ResyncSchedule    string        `mapstructure:"resync_schedule"`
	InsertBatch       int           `mapstructure:"insert_batch"`
	UpdateBatch       int           `mapstructure:"update_batch"`
	DeleteBatch       int           `mapstructure:"delete_batch"`
}

// GuildSettings is the per-guild section of config/guilds.json.
type GuildSettings struct {
	Name            string   `mapstructure:"name"`
	IgnoredChannels []string `mapstructure:"ignored_channels"`
}

// CommandsConfig configures who may run privileged commands.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists developer user IDs and admin role IDs.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"admins_roles"`
	Guest       []string `mapstructure:"guest"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"` // json or console
	Output   string `mapstructure:"output"` // stdout or file
	FilePath string `mapstructure:"file_path"`
}

// GRPCConfig configures the health endpoint.
type GRPCConfig struct {
	HealthAddr string `mapstructure:"health_addr"`
}

// IgnoredChannel reports whether channelID is excluded from archiving in guildID.
func (c *Config) IgnoredChannel(guildID, channelID string) bool {
	settings, ok := c.Guilds[guildID]
	if !ok {
		return false
	}
	for _, id := range settings.IgnoredChannels {
		if id == channelID {
			return true
		}
	}
	return false
}
