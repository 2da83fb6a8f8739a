package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.BotToken)
	assert.Equal(t, []string{"!"}, cfg.Bot.Prefixes)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/archive.db", cfg.Database.DSN)
	assert.Equal(t, 8000, cfg.Backup.ThrottleThreshold)
	assert.Equal(t, 8*time.Minute, cfg.Backup.ThrottleCooldown)
	assert.Equal(t, 5*time.Minute, cfg.Backup.FlushInterval)
	assert.Equal(t, "@weekly", cfg.Backup.FullSchedule)
	assert.Equal(t, "@daily", cfg.Backup.ResyncSchedule)
	assert.Equal(t, 2000, cfg.Backup.UpdateBatch)
	assert.Empty(t, cfg.GRPC.HealthAddr)
}

func TestLoadConfig_FilesAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), `
bot:
  prefixes: ["!", "?"]
  admin_channel_id: "42"
database:
  driver: postgres
  dsn: postgres://archiver@localhost/archive
backup:
  throttle_cooldown: 2m
commands:
  auth:
    developers: ["100"]
    admins_roles: ["200"]
`)
	writeFile(t, filepath.Join(dir, "config", "guilds.json"), `{
  "guilds": {
    "123": {"name": "Home", "ignored_channels": ["9", "10"]}
  }
}`)
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("BACKUP_FLUSH_INTERVAL", "30s")
	t.Setenv("LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"!", "?"}, cfg.Bot.Prefixes)
	assert.Equal(t, "42", cfg.Bot.AdminChannelID)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Backup.ThrottleCooldown)
	assert.Equal(t, 30*time.Second, cfg.Backup.FlushInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"100"}, cfg.Commands.Auth.Developers)
	assert.Equal(t, []string{"200"}, cfg.Commands.Auth.AdminsRoles)

	require.Contains(t, cfg.Guilds, "123")
	assert.Equal(t, "Home", cfg.Guilds["123"].Name)
	assert.True(t, cfg.IgnoredChannel("123", "10"))
	assert.False(t, cfg.IgnoredChannel("123", "11"))
	assert.False(t, cfg.IgnoredChannel("456", "10"))
}

func TestLoadConfig_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "no bot token")
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "bot: [unclosed")
	t.Setenv("BOT_TOKEN", "token")

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "config.yaml")
}
