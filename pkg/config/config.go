package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Oracle      OracleConfig     `mapstructure:"oracle"`
	Classifier  ClassifierConfig `mapstructure:"classifier"`
	Moderation  ModerationConfig `mapstructure:"moderation"`
	Audit       AuditConfig      `mapstructure:"audit"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Log         LogConfig        `mapstructure:"log"`
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PollTimeout int           `mapstructure:"poll_timeout"`
}

type OracleConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "keywords".
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	StrictLabels bool          `mapstructure:"strict_labels"`
}

type CategoryConfig struct {
	Label       string   `mapstructure:"label"`
	Description string   `mapstructure:"description"`
	Keywords    []string `mapstructure:"keywords"`
}

type ClassifierConfig struct {
	Safe       CategoryConfig   `mapstructure:"safe"`
	Categories []CategoryConfig `mapstructure:"categories"`
}

type ModerationConfig struct {
	DeleteMessage   bool `mapstructure:"delete_message"`
	BanMember       bool `mapstructure:"ban_member"`
	AnalyzeCaptions bool `mapstructure:"analyze_captions"`
}

type AuditConfig struct {
	// Mode overrides the environment-derived mode: file, channel or postgres.
	Mode    string        `mapstructure:"mode"`
	File    string        `mapstructure:"file"`
	Channel string        `mapstructure:"channel"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CacheConfig struct {
	// Backend is "none", "memory" or "redis".
	Backend       string        `mapstructure:"backend"`
	Size          int           `mapstructure:"size"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var ErrMissingTelegramToken = errors.New("telegram token is required (TELEGRAM_BOT_TOKEN)")

// AuditMode resolves the audit delivery mode. Production notifies the
// operator channel; any other environment writes the local file.
func (c *Config) AuditMode() string {
	if c.Audit.Mode != "" {
		return strings.ToLower(c.Audit.Mode)
	}
	if strings.EqualFold(c.Environment, "production") {
		return "channel"
	}
	return "file"
}

// Validate reports the first setting that prevents startup.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return ErrMissingTelegramToken
	}
	if c.Telegram.Timeout <= time.Duration(c.Telegram.PollTimeout)*time.Second {
		return fmt.Errorf("telegram.timeout (%s) must exceed telegram.poll_timeout (%ds)", c.Telegram.Timeout, c.Telegram.PollTimeout)
	}

	if err := c.ValidateClassifier(); err != nil {
		return err
	}

	switch c.AuditMode() {
	case "file":
		if c.Audit.File == "" {
			return errors.New("audit.file is required in file mode")
		}
	case "channel", "postgres":
	default:
		return fmt.Errorf("unknown audit mode %q", c.Audit.Mode)
	}

	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// ValidateClassifier checks only the oracle and category settings.
func (c *Config) ValidateClassifier() error {
	switch c.Oracle.Provider {
	case "openai", "keywords":
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}

	if len(c.Classifier.Categories) == 0 {
		return errors.New("classifier.categories must declare at least one abusive category")
	}
	safe := strings.ToLower(strings.TrimSpace(c.Classifier.Safe.Label))
	for _, cat := range c.Classifier.Categories {
		if strings.ToLower(strings.TrimSpace(cat.Label)) == safe {
			return fmt.Errorf("label %q is declared both safe and abusive", cat.Label)
		}
	}
	return nil
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "PRODUCTION")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.timeout", 90*time.Second)
	v.SetDefault("telegram.poll_timeout", 60)

	v.SetDefault("oracle.provider", "openai")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.max_tokens", 10)
	v.SetDefault("oracle.temperature", 0.0)
	v.SetDefault("oracle.timeout", 30*time.Second)
	v.SetDefault("oracle.strict_labels", false)

	v.SetDefault("classifier.safe.label", "safe")
	v.SetDefault("classifier.safe.description", "the message does not contain any of the above and seems generally harmless")
	v.SetDefault("classifier.categories", []map[string]interface{}{
		{
			"label":       "spam",
			"description": "unsolicited advertising, links, or offers (especially for adult content or products), or any content that appears deceptive or intended to trick the reader",
			"keywords":    []string{"buy followers", "click here", "free bitcoin", "earn money fast", "dm me for"},
		},
		{
			"label":       "uncivil",
			"description": "harassment, insults, explicit sexual content, or any form of exploitation",
			"keywords":    []string{"kill yourself", "send nudes"},
		},
	})

	v.SetDefault("moderation.delete_message", true)
	v.SetDefault("moderation.ban_member", true)
	v.SetDefault("moderation.analyze_captions", true)

	v.SetDefault("audit.mode", "")
	v.SetDefault("audit.file", "banned_logs.csv")
	v.SetDefault("audit.channel", "")
	v.SetDefault("audit.timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "modbot")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig builds the configuration from defaults, an optional YAML file and
// the environment. Every key can be set as MODBOT_<SECTION>_<KEY>; the
// conventional variable names below are honored as well.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MODBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"environment":      {"ENVIRONMENT"},
		"telegram.token":   {"TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN"},
		"oracle.api_key":   {"ORACLE_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"},
		"oracle.base_url":  {"ORACLE_BASE_URL"},
		"oracle.model":     {"ORACLE_MODEL"},
		"audit.mode":       {"AUDIT_MODE"},
		"audit.file":       {"AUDIT_LOG_FILE"},
		"audit.channel":    {"TELEGRAM_LOG_CHANNEL"},
		"cache.redis_addr": {"REDIS_ADDR"},
		"metrics.addr":     {"METRICS_ADDR"},
		"database_url":     {"DATABASE_URL"},
	}
	for key, envs := range bindings {
		// The prefixed form stays first so it wins over the conventional names.
		names := append([]string{"MODBOT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := v.GetString("database_url"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	return &config, nil
}
