// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads runtime settings from GPCMS_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "GPCMS_"

// MinSessionSecretLength is the minimum session secret length in bytes.
const MinSessionSecretLength = 32

var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds the application configuration.
type Config struct {
	DBPath        string `env:"DB_PATH" envDefault:"./data/greenpower.db"`
	SessionSecret string `env:"SESSION_SECRET,required"`
	ServerHost    string `env:"SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	Env           string `env:"ENV" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"UPLOADS_DIR" envDefault:"./uploads"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	TrustedOrigins []string      `env:"TRUSTED_ORIGINS" envSeparator:","` // extra origins allowed past CSRF checks

	// Cache
	RedisURL     string `env:"REDIS_URL"` // optional, memory cache otherwise
	CachePrefix  string `env:"CACHE_PREFIX" envDefault:"gpcms:"`
	CacheTTL     int    `env:"CACHE_TTL" envDefault:"300"` // seconds
	CacheMaxSize int    `env:"CACHE_MAX_SIZE" envDefault:"5000"`

	// Path to a GeoLite2-Country.mmdb file for realtime visitor countries.
	GeoIPDBPath string `env:"GEOIP_DB_PATH"`

	// API rate limit per client IP.
	APIRateLimit float64 `env:"API_RATE_LIMIT" envDefault:"20"` // requests per second
	APIRateBurst int     `env:"API_RATE_BURST" envDefault:"40"`

	EventRetentionDays int `env:"EVENT_RETENTION_DAYS" envDefault:"90"`

	// Seeding
	DoSeed        bool   `env:"DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"changeme1234"`
}

// IsDevelopment reports whether the application runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns host:port.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache reports whether a Redis URL is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled reports whether a GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("%sSESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate one with: openssl rand -base64 32",
			EnvPrefix, MinSessionSecretLength, len(c.SessionSecret))
	}
	if slices.Contains(knownWeakSecrets, c.SessionSecret) {
		return fmt.Errorf("%sSESSION_SECRET is a known default value and must not be used", EnvPrefix)
	}
	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn(EnvPrefix + "SESSION_SECRET has low character diversity; consider openssl rand -base64 32")
	}

	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("%sENV must be development or production, got %q", EnvPrefix, c.Env)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("%sLOG_LEVEL must be one of %s, got %q", EnvPrefix, strings.Join(logLevels, ", "), c.LogLevel)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("%sSERVER_PORT out of range: %d", EnvPrefix, c.ServerPort)
	}
	if c.DoSeed && len(c.AdminPassword) < 8 {
		return fmt.Errorf("%sADMIN_PASSWORD must be at least 8 characters", EnvPrefix)
	}
	if c.EventRetentionDays < 1 {
		c.EventRetentionDays = 1
	}
	return nil
}

// hasMinimumEntropy reports whether s mixes at least three character classes.
func hasMinimumEntropy(s string) bool {
	classes := 0
	for _, set := range []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	} {
		if strings.ContainsAny(s, set) {
			classes++
		}
	}
	return classes >= 3
}
