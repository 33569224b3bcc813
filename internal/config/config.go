// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CardEndpoint answers trading-card queries.
	CardEndpoint string `koanf:"card_endpoint"`

	// ArchetypeEndpoint answers archetype group-listing queries.
	ArchetypeEndpoint string `koanf:"archetype_endpoint"`

	// CreatureEndpoint answers creature-dex queries.
	CreatureEndpoint string `koanf:"creature_endpoint"`

	// TierlistEndpoint answers tier-list queries.
	TierlistEndpoint string `koanf:"tierlist_endpoint"`

	// APIKey is sent as x-api-key on pipeline calls; optional.
	APIKey string `koanf:"api_key"`

	// UpstreamTimeout bounds a single pipeline HTTP round trip.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout"`

	// Concurrency sets how many queries execute at once.
	Concurrency int `koanf:"concurrency"`

	// MaxPending bounds the number of queued queries.
	MaxPending int `koanf:"max_pending"`

	// RequestTimeout bounds a query from enqueue to completion.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RateLimitCount and RateLimitWindow form the per-user admission
	// budget.
	RateLimitCount  int           `koanf:"rate_limit_count"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CleanupInterval controls rate-ledger pruning.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		UpstreamTimeout: 55 * time.Second,
		Concurrency:     1,
		MaxPending:      50,
		RequestTimeout:  60 * time.Second,
		RateLimitCount:  5,
		RateLimitWindow: 60 * time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}
