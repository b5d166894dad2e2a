// Package config handles configuration for the bot, including defaults,
// a JSON file overlay, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/dbx"
)

// Verification grant scopes.
const (
	// ScopeOwner: one verification unlocks every file of that owner.
	ScopeOwner = "owner"
	// ScopeFile: a grant only unlocks the file it was claimed for.
	ScopeFile = "file"
)

// Config holds runtime settings for the bot.
//
// Fields:
//   - BotToken: messaging platform token.
//   - DatabaseDriver / DatabaseDSN: "pgx" (PostgreSQL) or "sqlite" and its DSN.
//   - AppURL: base URL of the streaming front-end; "" disables delivery.
//   - AdminID: account alerted on critical misconfiguration.
//   - StorageChannelID: channel that holds the stored file messages.
//   - TutorialURL / UpdatesURL / OwnerURL: optional greeting buttons.
//   - VerificationTTL / VerificationScope: grant lifetime and scope.
//   - EphemeralDelay: how long a delivered copy stays in the chat.
//   - ShortenerAPIURL / ShortenerAPIKey / ShortenerTimeout: global link shortener.
//   - CacheSize / CacheTTL: read-through cache for files and owner settings.
//   - OpsAddr: bind address for /metrics and health probes; "" disables it.
//   - LogLevel / LogFormat: slog level and handler (json|text).
//   - RabbitMQURL / EventsExchange: optional domain event publishing.
//   - OTelEndpoint: OTLP/HTTP endpoint; "" disables tracing.
type Config struct {
	BotToken          string        `env:"FILEGATE_BOT_TOKEN"`
	DatabaseDriver    string        `env:"FILEGATE_DATABASE_DRIVER"`
	DatabaseDSN       string        `env:"FILEGATE_DATABASE_DSN"`
	AppURL            string        `env:"FILEGATE_APP_URL"`
	AdminID           int64         `env:"FILEGATE_ADMIN_ID"`
	StorageChannelID  int64         `env:"FILEGATE_STORAGE_CHANNEL_ID"`
	TutorialURL       string        `env:"FILEGATE_TUTORIAL_URL"`
	UpdatesURL        string        `env:"FILEGATE_UPDATES_URL"`
	OwnerURL          string        `env:"FILEGATE_OWNER_URL"`
	VerificationTTL   time.Duration `env:"FILEGATE_VERIFICATION_TTL"`
	VerificationScope string        `env:"FILEGATE_VERIFICATION_SCOPE"`
	EphemeralDelay    time.Duration `env:"FILEGATE_EPHEMERAL_DELAY"`
	ShortenerAPIURL   string        `env:"FILEGATE_SHORTENER_API_URL"`
	ShortenerAPIKey   string        `env:"FILEGATE_SHORTENER_API_KEY"`
	ShortenerTimeout  time.Duration `env:"FILEGATE_SHORTENER_TIMEOUT"`
	CacheSize         int           `env:"FILEGATE_CACHE_SIZE"`
	CacheTTL          time.Duration `env:"FILEGATE_CACHE_TTL"`
	OpsAddr           string        `env:"FILEGATE_OPS_ADDR"`
	LogLevel          string        `env:"FILEGATE_LOG_LEVEL"`
	LogFormat         string        `env:"FILEGATE_LOG_FORMAT"`
	RabbitMQURL       string        `env:"FILEGATE_RABBITMQ_URL"`
	EventsExchange    string        `env:"FILEGATE_EVENTS_EXCHANGE"`
	OTelEndpoint      string        `env:"FILEGATE_OTEL_ENDPOINT"`
}

// LoadDefaults populates Config with development defaults.
// The bot token has no default and must be supplied.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = string(dbx.SQLite)
	c.DatabaseDSN = "file:data/filegate.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	c.VerificationTTL = 24 * time.Hour
	c.VerificationScope = ScopeOwner
	c.EphemeralDelay = 10 * time.Minute
	c.ShortenerTimeout = 10 * time.Second
	c.CacheSize = 1024
	c.CacheTTL = time.Minute
	c.OpsAddr = ":8080"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.EventsExchange = "filegate.events"
}

// Validate rejects settings the bot cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, errors.New("bot token is required"))
	}
	if _, err := dbx.ParseDialect(c.DatabaseDriver); err != nil {
		errs = append(errs, err)
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.VerificationScope != ScopeOwner && c.VerificationScope != ScopeFile {
		errs = append(errs, fmt.Errorf("unknown verification scope %q (want %s or %s)", c.VerificationScope, ScopeOwner, ScopeFile))
	}
	for name, d := range map[string]time.Duration{
		"verification ttl":  c.VerificationTTL,
		"ephemeral delay":   c.EphemeralDelay,
		"shortener timeout": c.ShortenerTimeout,
		"cache ttl":         c.CacheTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache size must not be negative, got %d", c.CacheSize))
	}

	return errors.Join(errs...)
}

// Dialect returns the parsed database driver. Call after Validate.
func (c *Config) Dialect() dbx.Dialect {
	d, _ := dbx.ParseDialect(c.DatabaseDriver)
	return d
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
