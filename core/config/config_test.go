package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/choicebot/core/question"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("CHANNEL_SECRET", "secret")
	t.Setenv("PORT", "8080")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, PlatformLine, cfg.Platform)
	assert.Equal(t, "token", cfg.Line.ChannelAccessToken)
	assert.Equal(t, "secret", cfg.Line.ChannelSecret)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, question.Default().Title, cfg.Question.Title)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadLineAliases(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "alias-token")
	t.Setenv("LINE_CHANNEL_SECRET", "alias-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "alias-token", cfg.Line.ChannelAccessToken)
	assert.Equal(t, "alias-secret", cfg.Line.ChannelSecret)
}

func TestLoadPrimaryBeatsAlias(t *testing.T) {
	t.Setenv("CHANNEL_ACCESS_TOKEN", "primary-token")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "alias-token")
	t.Setenv("CHANNEL_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "primary-token", cfg.Line.ChannelAccessToken)
}

func TestLoadRequiresLineSecrets(t *testing.T) {
	t.Setenv("CHANNEL_ACCESS_TOKEN", "token")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANNEL_SECRET")
}

func TestLoadYAMLQuestionAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
line:
  channel_access_token: file-token
  channel_secret: file-secret
question:
  id: 3
  title: "  Favourite fruit "
  choices: [" Apple", "Banana"]
  min: 1
  max: 1
database:
  host: db.local
`)
	t.Setenv("CHANNEL_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Line.ChannelAccessToken)
	assert.Equal(t, "env-secret", cfg.Line.ChannelSecret)
	assert.Equal(t, 3, cfg.Question.ID)
	assert.Equal(t, "Favourite fruit", cfg.Question.Title)
	assert.Equal(t, []string{"Apple", "Banana"}, cfg.Question.Choices)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
}

func TestLoadRejectsInvalidQuestion(t *testing.T) {
	path := writeConfig(t, `
platform: line
line: {channel_access_token: t, channel_secret: s}
question: {title: Pick, choices: [A, B], min: 2, max: 1}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, question.ErrInvalid)
}

func TestNormalizeTelegram(t *testing.T) {
	cfg := &Config{Platform: "Telegram", Telegram: TelegramConfig{Token: "t", RunMode: "polling"}}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, PlatformTelegram, cfg.Platform)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)

	cfg = &Config{Platform: "telegram", Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}
	assert.Error(t, Normalize(cfg))

	cfg = &Config{Platform: "telegram", Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}}
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeUnknownPlatform(t *testing.T) {
	assert.Error(t, Normalize(&Config{Platform: "slack"}))
	assert.Error(t, Normalize(nil))
}
