// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Resilience.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Resilience.MaxRetries)
	}
	if cfg.Sync.Deadline != 5*time.Minute {
		t.Errorf("expected 5m cycle deadline, got %v", cfg.Sync.Deadline)
	}
	if cfg.Sync.PageSize > maxPageSize {
		t.Errorf("default page size %d exceeds cap %d", cfg.Sync.PageSize, maxPageSize)
	}
	if cfg.Store.Backend != "badger" {
		t.Errorf("expected badger backend default, got %q", cfg.Store.Backend)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero breaker threshold", func(c *Config) { c.Resilience.BreakerThreshold = 0 }},
		{"negative retries", func(c *Config) { c.Resilience.MaxRetries = -1 }},
		{"page size over cap", func(c *Config) { c.Sync.PageSize = maxPageSize + 1 }},
		{"zero workers", func(c *Config) { c.Sync.Workers = 0 }},
		{"blank sync query", func(c *Config) { c.Sync.Queries = []string{"rock", "  "} }},
		{"degraded threshold over 1", func(c *Config) { c.Sync.DegradedThreshold = 1.5 }},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"badger without path", func(c *Config) { c.Store.Backend = "badger"; c.Store.Path = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"malformed catalog url", func(c *Config) { c.Catalog.BaseURL = "not a url" }},
		{"zero catalog rate", func(c *Config) { c.Catalog.RateLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SOUNDCHECK_CATALOG_BASE_URL", "catalog.base_url"},
		{"SOUNDCHECK_CATALOG_API_KEY", "catalog.api_key"},
		{"SOUNDCHECK_EVENTS_RATE_LIMIT", "events.rate_limit"},
		{"SOUNDCHECK_SYNC_PAGE_SIZE", "sync.page_size"},
		{"SOUNDCHECK_SERVER_PORT", "server.port"},
		{"SOUNDCHECK_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceConfigDisabledWhenEmpty(t *testing.T) {
	cfg := defaultConfig()
	cfg.Catalog.BaseURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty base_url should be allowed (source disabled), got: %v", err)
	}
}
