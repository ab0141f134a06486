package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, 90*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "PRODUCTION", cfg.Environment)
	assert.Equal(t, "channel", cfg.AuditMode())
	assert.Equal(t, "banned_logs.csv", cfg.Audit.File)
	assert.Equal(t, 10*time.Second, cfg.Audit.Timeout)
	assert.Equal(t, "safe", cfg.Classifier.Safe.Label)
	require.Len(t, cfg.Classifier.Categories, 2)
	assert.Equal(t, "spam", cfg.Classifier.Categories[0].Label)
	assert.Contains(t, cfg.Classifier.Categories[0].Keywords, "click here")
	assert.True(t, cfg.Moderation.DeleteMessage)
	assert.True(t, cfg.Moderation.BanMember)
	assert.True(t, cfg.Moderation.AnalyzeCaptions)
	assert.Empty(t, cfg.Oracle.APIKey)
}

func TestLoadConfig_ConventionalEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("TELEGRAM_LOG_CHANNEL", "@filterAiLogs")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("MODBOT_ORACLE_TIMEOUT", "5s")
	t.Setenv("DATABASE_URL", "postgres://mod:secret@db:6543/audit?sslmode=require")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, "gem", cfg.Oracle.APIKey)
	assert.Equal(t, "@filterAiLogs", cfg.Audit.Channel)
	assert.Equal(t, "file", cfg.AuditMode())
	assert.Equal(t, 5*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, DatabaseConfig{
		Host: "db", Port: 6543, User: "mod", Password: "secret", DBName: "audit", SSLMode: "require",
	}, cfg.Database)
}

func TestLoadConfig_PrefixedEnvWins(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "plain")
	t.Setenv("MODBOT_TELEGRAM_TOKEN", "prefixed")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Telegram.Token)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
telegram:
  token: file-token
oracle:
  provider: keywords
  strict_labels: true
classifier:
  safe:
    label: ok
  categories:
    - label: scam
      description: fraud
      keywords: ["wire transfer"]
moderation:
  delete_message: false
audit:
  mode: postgres
cache:
  backend: redis
  ttl: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, "keywords", cfg.Oracle.Provider)
	assert.True(t, cfg.Oracle.StrictLabels)
	assert.Equal(t, "ok", cfg.Classifier.Safe.Label)
	require.Len(t, cfg.Classifier.Categories, 1)
	assert.Equal(t, []string{"wire transfer"}, cfg.Classifier.Categories[0].Keywords)
	assert.False(t, cfg.Moderation.DeleteMessage)
	assert.True(t, cfg.Moderation.BanMember)
	assert.Equal(t, "postgres", cfg.AuditMode())
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }},
		{"poll exceeds timeout", func(c *Config) { c.Telegram.Timeout = 30 * time.Second }},
		{"unknown provider", func(c *Config) { c.Oracle.Provider = "bard" }},
		{"no categories", func(c *Config) { c.Classifier.Categories = nil }},
		{"safe also abusive", func(c *Config) { c.Classifier.Categories[0].Label = "SAFE" }},
		{"unknown audit mode", func(c *Config) { c.Audit.Mode = "both" }},
		{"file mode without path", func(c *Config) { c.Audit.Mode = "file"; c.Audit.File = "" }},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Telegram.Token = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingTelegramToken)
}
