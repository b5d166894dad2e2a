package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filegate/internal/flagx"
	"github.com/dmitrijs2005/filegate/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
// Only keys present (non-zero) in the file override the defaults.
type JsonConfig struct {
	BotToken          string         `json:"bot_token"`
	DatabaseDriver    string         `json:"database_driver"`
	DatabaseDSN       string         `json:"database_dsn"`
	AppURL            string         `json:"app_url"`
	AdminID           int64          `json:"admin_id"`
	StorageChannelID  int64          `json:"storage_channel_id"`
	TutorialURL       string         `json:"tutorial_url"`
	UpdatesURL        string         `json:"updates_url"`
	OwnerURL          string         `json:"owner_url"`
	VerificationTTL   timex.Duration `json:"verification_ttl"`
	VerificationScope string         `json:"verification_scope"`
	EphemeralDelay    timex.Duration `json:"ephemeral_delay"`
	ShortenerAPIURL   string         `json:"shortener_api_url"`
	ShortenerAPIKey   string         `json:"shortener_api_key"`
	ShortenerTimeout  timex.Duration `json:"shortener_timeout"`
	CacheSize         int            `json:"cache_size"`
	CacheTTL          timex.Duration `json:"cache_ttl"`
	OpsAddr           string         `json:"ops_addr"`
	LogLevel          string         `json:"log_level"`
	LogFormat         string         `json:"log_format"`
	RabbitMQURL       string         `json:"rabbitmq_url"`
	EventsExchange    string         `json:"events_exchange"`
	OTelEndpoint      string         `json:"otel_endpoint"`
}

// parseJson loads the file named by -c/-config (if any) into config.
func parseJson(config *Config) error {
	path := flagx.ConfigPath()

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.BotToken, c.BotToken)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AppURL, c.AppURL)
	setString(&config.TutorialURL, c.TutorialURL)
	setString(&config.UpdatesURL, c.UpdatesURL)
	setString(&config.OwnerURL, c.OwnerURL)
	setString(&config.VerificationScope, c.VerificationScope)
	setString(&config.ShortenerAPIURL, c.ShortenerAPIURL)
	setString(&config.ShortenerAPIKey, c.ShortenerAPIKey)
	setString(&config.OpsAddr, c.OpsAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.RabbitMQURL, c.RabbitMQURL)
	setString(&config.EventsExchange, c.EventsExchange)
	setString(&config.OTelEndpoint, c.OTelEndpoint)

	if c.AdminID != 0 {
		config.AdminID = c.AdminID
	}
	if c.StorageChannelID != 0 {
		config.StorageChannelID = c.StorageChannelID
	}
	if c.CacheSize != 0 {
		config.CacheSize = c.CacheSize
	}
	if c.VerificationTTL.Duration != 0 {
		config.VerificationTTL = c.VerificationTTL.Duration
	}
	if c.EphemeralDelay.Duration != 0 {
		config.EphemeralDelay = c.EphemeralDelay.Duration
	}
	if c.ShortenerTimeout.Duration != 0 {
		config.ShortenerTimeout = c.ShortenerTimeout.Duration
	}
	if c.CacheTTL.Duration != 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
