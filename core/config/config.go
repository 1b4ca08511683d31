package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/choicebot/core/question"
)

const (
	// PlatformLine serves the LINE Messaging API webhook.
	PlatformLine = "line"
	// PlatformTelegram runs the Telegram bot runtime.
	PlatformTelegram = "telegram"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	defaultListen = "0.0.0.0"
	defaultPort   = 5000
)

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelAccessToken string `yaml:"channel_access_token" envconfig:"CHANNEL_ACCESS_TOKEN"`
	ChannelSecret      string `yaml:"channel_secret" envconfig:"CHANNEL_SECRET"`
}

// ServerConfig controls the HTTP listener used by the LINE webhook.
type ServerConfig struct {
	Listen string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Listen, s.Port)
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for per-user rate limiting of Telegram updates.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": quick-reply button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig holds optional PostgreSQL settings for recording answers.
// An empty Host disables the database entirely.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// Config aggregates the application configuration.
type Config struct {
	Platform  string              `yaml:"platform" envconfig:"BOT_PLATFORM"`
	Line      LineConfig          `yaml:"line"`
	Server    ServerConfig        `yaml:"server"`
	Telegram  TelegramConfig      `yaml:"telegram"`
	Webhook   WebhookConfig       `yaml:"webhook"`
	Logging   LoggingConfig       `yaml:"logging"`
	RateLimit RateLimitConfig     `yaml:"rate_limit"`
	Database  DatabaseConfig      `yaml:"database"`
	Question  question.Definition `yaml:"question"`
}

// envAliases maps alternative variable names onto the primary ones. The primary
// name wins when both are set.
var envAliases = map[string]string{
	"LINE_CHANNEL_ACCESS_TOKEN": "CHANNEL_ACCESS_TOKEN",
	"LINE_CHANNEL_SECRET":       "CHANNEL_SECRET",
}

// Load reads configuration from an optional YAML file and environment variables.
// A missing file is not an error; the environment alone may configure the bot.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	applyAliases(&cfg)

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyAliases(cfg *Config) {
	for alias, primary := range envAliases {
		v, ok := os.LookupEnv(primary)
		if !ok {
			v, ok = os.LookupEnv(alias)
		}
		if !ok {
			continue
		}
		switch primary {
		case "CHANNEL_ACCESS_TOKEN":
			cfg.Line.ChannelAccessToken = v
		case "CHANNEL_SECRET":
			cfg.Line.ChannelSecret = v
		}
	}
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	platform := strings.ToLower(strings.TrimSpace(cfg.Platform))
	if platform == "" {
		platform = PlatformLine
	}
	switch platform {
	case PlatformLine:
		if err := normalizeLine(cfg); err != nil {
			return err
		}
	case PlatformTelegram:
		if err := normalizeTelegram(cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid platform %q; allowed: line, telegram", cfg.Platform)
	}
	cfg.Platform = platform

	if cfg.Question.IsZero() {
		push := cfg.Question.PushStart
		cfg.Question = question.Default()
		cfg.Question.PushStart = push
	}
	cfg.Question.Normalize()
	if err := cfg.Question.Validate(); err != nil {
		return fmt.Errorf("question: %w", err)
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
	}
	return nil
}

func normalizeLine(cfg *Config) error {
	cfg.Line.ChannelAccessToken = strings.TrimSpace(cfg.Line.ChannelAccessToken)
	cfg.Line.ChannelSecret = strings.TrimSpace(cfg.Line.ChannelSecret)
	if cfg.Line.ChannelAccessToken == "" {
		return fmt.Errorf("line.channel_access_token (CHANNEL_ACCESS_TOKEN) is required")
	}
	if cfg.Line.ChannelSecret == "" {
		return fmt.Errorf("line.channel_secret (CHANNEL_SECRET) is required")
	}
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be within 1..65535, got %d", cfg.Server.Port)
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
