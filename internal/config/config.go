// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package config provides layered configuration for Soundcheck using
// Koanf v2: built-in defaults, then an optional YAML config file, then
// environment variables (highest priority).
//
// Environment variables use the SOUNDCHECK_ prefix and map to nested keys:
//
//	SOUNDCHECK_CATALOG_API_KEY     -> catalog.api_key
//	SOUNDCHECK_SYNC_INTERVAL       -> sync.interval
//	SOUNDCHECK_SERVER_PORT         -> server.port
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Catalog    SourceConfig     `koanf:"catalog"`
	Events     SourceConfig     `koanf:"events"`
	Resilience ResilienceConfig `koanf:"resilience"`
	Sync       SyncConfig       `koanf:"sync"`
	Trending   TrendingConfig   `koanf:"trending"`
	Store      StoreConfig      `koanf:"store"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// SourceConfig holds connection settings for one external source. The
// catalog source provides artist metadata; the events source provides
// shows and venues. Each source gets its own rate bucket and breaker.
type SourceConfig struct {
	BaseURL   string        `koanf:"base_url"`
	APIKey    string        `koanf:"api_key"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"` // requests per second
	Burst     int           `koanf:"burst"`
}

// ResilienceConfig tunes the retry/breaker/limiter policies shared by both
// source clients.
type ResilienceConfig struct {
	MaxRetries          int           `koanf:"max_retries"`
	RetryBaseDelay      time.Duration `koanf:"retry_base_delay"`
	RetryMaxDelay       time.Duration `koanf:"retry_max_delay"`
	BreakerThreshold    uint32        `koanf:"breaker_threshold"`     // consecutive failures before opening
	BreakerResetTimeout time.Duration `koanf:"breaker_reset_timeout"` // open -> half-open delay
	LimiterMaxWait      time.Duration `koanf:"limiter_max_wait"`      // bounded token wait
}

// SyncConfig drives the orchestrator's cycle cadence and shape.
type SyncConfig struct {
	Scheduled         bool          `koanf:"scheduled"` // run cycles on Interval; manual triggers always work
	Interval          time.Duration `koanf:"interval"`
	Deadline          time.Duration `koanf:"deadline"`
	Queries           []string      `koanf:"queries"` // discovery queries run against both sources
	PageSize          int           `koanf:"page_size"`
	Workers           int           `koanf:"workers"`            // bounded concurrency across discovery queries
	DegradedThreshold float64       `koanf:"degraded_threshold"` // failure fraction that marks a cycle degraded
}

// TrendingConfig holds the scoring weights documented with the ranking
// formulas in internal/trending.
type TrendingConfig struct {
	VoteWeight      float64       `koanf:"vote_weight"`      // per-vote weight in the artist score
	ShowBoost       float64       `koanf:"show_boost"`       // per-upcoming-show boost in the artist score
	FollowerWeight  float64       `koanf:"follower_weight"`  // follower multiplier in the artist score
	RefreshInterval time.Duration `koanf:"refresh_interval"` // cadence for the background refresh, 0 = on demand only
	MaxLimit        int           `koanf:"max_limit"`        // cap on caller-supplied limits
}

// StoreConfig selects the store backend.
type StoreConfig struct {
	Backend string `koanf:"backend"` // badger or memory
	Path    string `koanf:"path"`    // badger data directory
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	VoteRateLimit   int           `koanf:"vote_rate_limit"`  // vote requests per voter per window
	VoteRateWindow  time.Duration `koanf:"vote_rate_window"` // window for the vote rate limit
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// layered first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Catalog: SourceConfig{
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     10,
		},
		Events: SourceConfig{
			Timeout:   30 * time.Second,
			RateLimit: 5,
			Burst:     10,
		},
		Resilience: ResilienceConfig{
			MaxRetries:          3,
			RetryBaseDelay:      200 * time.Millisecond,
			RetryMaxDelay:       10 * time.Second,
			BreakerThreshold:    5,
			BreakerResetTimeout: 60 * time.Second,
			LimiterMaxWait:      10 * time.Second,
		},
		Sync: SyncConfig{
			Scheduled:         true,
			Interval:          6 * time.Hour,
			Deadline:          5 * time.Minute,
			Queries:           nil,
			PageSize:          50,
			Workers:           4,
			DegradedThreshold: 0.25,
		},
		Trending: TrendingConfig{
			VoteWeight:      75,
			ShowBoost:       1000,
			FollowerWeight:  0.1,
			RefreshInterval: 0, // recompute on read by default
			MaxLimit:        100,
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "/data/soundcheck",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			VoteRateLimit:   30,
			VoteRateWindow:  time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
