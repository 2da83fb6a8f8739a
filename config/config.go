package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"discord-archiver/models"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads the configuration from several sources under dir:
//  1. .env (environment variables)
//  2. config.yaml (base configuration)
//  3. config/guilds.json (per-guild settings, merged into the base)
//
// Environment variables override the file settings; the '.' of a key becomes '_'.
func LoadConfig(dir string) (*models.Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("bot_token", "BOT_TOKEN"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}

	v.SetConfigName("guilds")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, "config"))
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to merge config/guilds.json: %w", err)
		}
	}

	var cfg models.Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("no bot token provided")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.prefixes", []string{"!"})
	v.SetDefault("bot.admin_channel_id", "")
	v.SetDefault("bot.backup_at_startup", false)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "data/archive.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.status_file", "data/status.json")

	v.SetDefault("backup.throttle_threshold", 8000)
	v.SetDefault("backup.throttle_cooldown", "8m")
	v.SetDefault("backup.flush_interval", "5m")
	v.SetDefault("backup.full_schedule", "@weekly")
	v.SetDefault("backup.resync_schedule", "@daily")
	v.SetDefault("backup.insert_batch", 1000)
	v.SetDefault("backup.update_batch", 2000)
	v.SetDefault("backup.delete_batch", 1000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "logs/archiver.log")

	v.SetDefault("grpc.health_addr", "")
}
