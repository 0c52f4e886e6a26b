// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Durations are expressed as integer milliseconds in config sources and
//     converted with the accessor methods.
//   - All loaders accept context.Context as the first parameter.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Messenger backends.
const (
	MessengerOutbox  = "outbox"
	MessengerWebhook = "webhook"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ChannelID is the only chat channel whose commands are processed.
	// Empty accepts every channel.
	ChannelID string `koanf:"channel_id"`

	// QueueSize bounds the event loop backlog.
	QueueSize int `koanf:"queue_size"`
	// DedupeSize bounds the inbound event id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the snapshot backend: json or sqlite.
	Store      string `koanf:"store"`
	DataDir    string `koanf:"data_dir"`
	SQLitePath string `koanf:"sqlite_path"`

	// Timezone is the IANA zone the reset schedules run in.
	Timezone       string `koanf:"timezone"`
	RollResetCron  string `koanf:"roll_reset_cron"`
	ClaimResetCron string `koanf:"claim_reset_cron"`
	RollsPerReset  int    `koanf:"rolls_per_reset"`

	ClaimWindowMS     int `koanf:"claim_window_ms"`
	PaginationIdleMS  int `koanf:"pagination_idle_ms"`
	SweepIntervalMS   int `koanf:"sweep_interval_ms"`
	FlushIntervalMS   int `koanf:"flush_interval_ms"`
	DailyCooldownMS   int `koanf:"daily_cooldown_ms"`
	DailyMaxReward    int `koanf:"daily_max_reward"`
	TopEntitiesLimit  int `koanf:"top_entities_limit"`
	EntitiesPageSize  int `koanf:"entities_page_size"`
	UsersPageSize     int `koanf:"users_page_size"`
	MaxLeaderboardAPI int `koanf:"max_leaderboard_limit"`

	CurrencyEmoji string `koanf:"currency_emoji"`

	// Messenger selects the outbound chat collaborator: outbox or webhook.
	Messenger        string `koanf:"messenger"`
	WebhookURL       string `koanf:"webhook_url"`
	WebhookTimeoutMS int    `koanf:"webhook_timeout_ms"`

	CatalogURL       string `koanf:"catalog_url"`
	CatalogPageSize  int    `koanf:"catalog_page_size"`
	CatalogStartPage int    `koanf:"catalog_start_page"`
	CatalogTimeoutMS int    `koanf:"catalog_timeout_ms"`
	MaxPopularity    int    `koanf:"max_popularity"`
	IngestOnStart    bool   `koanf:"ingest_on_start"`

	BlurSigma      float64 `koanf:"blur_sigma"`
	ImageTimeoutMS int     `koanf:"image_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         10_000,
		DedupeSize:        50_000,
		Store:             StoreJSON,
		DataDir:           "./database",
		SQLitePath:        "./database/rollbot.db",
		Timezone:          "Africa/Casablanca",
		RollResetCron:     "*/30 * * * *",
		ClaimResetCron:    "0 * * * *",
		RollsPerReset:     8,
		ClaimWindowMS:     30_000,
		PaginationIdleMS:  60_000,
		SweepIntervalMS:   1000,
		FlushIntervalMS:   15_000,
		DailyCooldownMS:   24 * 60 * 60 * 1000,
		DailyMaxReward:    1000,
		TopEntitiesLimit:  1000,
		EntitiesPageSize:  15,
		UsersPageSize:     10,
		MaxLeaderboardAPI: 1000,
		CurrencyEmoji:     "💎",
		Messenger:         MessengerOutbox,
		WebhookTimeoutMS:  5_000,
		CatalogURL:        "https://graphql.anilist.co",
		CatalogPageSize:   50,
		CatalogStartPage:  1,
		CatalogTimeoutMS:  15_000,
		MaxPopularity:     32670,
		BlurSigma:         7,
		ImageTimeoutMS:    10_000,
	}
}

// Validate checks the invariants the service relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreJSON:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch c.Messenger {
	case MessengerOutbox:
	case MessengerWebhook:
		if strings.TrimSpace(c.WebhookURL) == "" {
			return fmt.Errorf("%w: webhook_url is required for the webhook messenger", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown messenger %q", ErrInvalidConfig, c.Messenger)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	for name, spec := range map[string]string{"roll_reset_cron": c.RollResetCron, "claim_reset_cron": c.ClaimResetCron} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, name, spec, err)
		}
	}
	positives := []struct {
		name  string
		value int
	}{
		{"rolls_per_reset", c.RollsPerReset},
		{"claim_window_ms", c.ClaimWindowMS},
		{"pagination_idle_ms", c.PaginationIdleMS},
		{"sweep_interval_ms", c.SweepIntervalMS},
		{"flush_interval_ms", c.FlushIntervalMS},
		{"daily_max_reward", c.DailyMaxReward},
		{"top_entities_limit", c.TopEntitiesLimit},
		{"entities_page_size", c.EntitiesPageSize},
		{"users_page_size", c.UsersPageSize},
		{"catalog_page_size", c.CatalogPageSize},
		{"catalog_start_page", c.CatalogStartPage},
		{"max_popularity", c.MaxPopularity},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, p.name)
		}
	}
	return nil
}

// Location returns the scheduler time zone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) ClaimWindow() time.Duration    { return ms(c.ClaimWindowMS) }
func (c *Config) PaginationIdle() time.Duration { return ms(c.PaginationIdleMS) }
func (c *Config) SweepInterval() time.Duration  { return ms(c.SweepIntervalMS) }
func (c *Config) FlushInterval() time.Duration  { return ms(c.FlushIntervalMS) }
func (c *Config) DailyCooldown() time.Duration  { return ms(c.DailyCooldownMS) }
func (c *Config) WebhookTimeout() time.Duration { return ms(c.WebhookTimeoutMS) }
func (c *Config) CatalogTimeout() time.Duration { return ms(c.CatalogTimeoutMS) }
func (c *Config) ImageTimeout() time.Duration   { return ms(c.ImageTimeoutMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
