// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// maxPageSize caps the page size accepted by source clients.
const maxPageSize = 100

// Validate checks the loaded configuration for invalid or inconsistent
// values. Returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Catalog.validate("catalog"); err != nil {
		return err
	}
	if err := c.Events.validate("events"); err != nil {
		return err
	}

	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("resilience.max_retries must be >= 0, got %d", c.Resilience.MaxRetries)
	}
	if c.Resilience.BreakerThreshold == 0 {
		return fmt.Errorf("resilience.breaker_threshold must be >= 1")
	}
	if c.Resilience.RetryBaseDelay <= 0 {
		return fmt.Errorf("resilience.retry_base_delay must be positive")
	}
	if c.Resilience.RetryMaxDelay < c.Resilience.RetryBaseDelay {
		return fmt.Errorf("resilience.retry_max_delay must be >= retry_base_delay")
	}
	if c.Resilience.LimiterMaxWait <= 0 {
		return fmt.Errorf("resilience.limiter_max_wait must be positive")
	}

	if c.Sync.PageSize < 1 || c.Sync.PageSize > maxPageSize {
		return fmt.Errorf("sync.page_size must be in [1, %d], got %d", maxPageSize, c.Sync.PageSize)
	}
	for i, q := range c.Sync.Queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("sync.queries[%d] must not be blank", i)
		}
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be >= 1, got %d", c.Sync.Workers)
	}
	if c.Sync.Deadline <= 0 {
		return fmt.Errorf("sync.deadline must be positive")
	}
	if c.Sync.DegradedThreshold <= 0 || c.Sync.DegradedThreshold > 1 {
		return fmt.Errorf("sync.degraded_threshold must be in (0, 1], got %f", c.Sync.DegradedThreshold)
	}

	if c.Trending.MaxLimit < 1 {
		return fmt.Errorf("trending.max_limit must be >= 1, got %d", c.Trending.MaxLimit)
	}
	if c.Trending.VoteWeight < 0 || c.Trending.ShowBoost < 0 || c.Trending.FollowerWeight < 0 {
		return fmt.Errorf("trending weights must be non-negative")
	}

	switch c.Store.Backend {
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the badger backend")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be badger or memory, got %q", c.Store.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.VoteRateLimit < 1 {
		return fmt.Errorf("server.vote_rate_limit must be >= 1, got %d", c.Server.VoteRateLimit)
	}

	return nil
}

// validate checks a single source configuration. An empty base URL is
// allowed (the source is treated as disabled); a malformed one is not.
func (s SourceConfig) validate(name string) error {
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s.base_url is not a valid URL: %q", name, s.BaseURL)
		}
	}
	if s.RateLimit <= 0 {
		return fmt.Errorf("%s.rate_limit must be positive, got %f", name, s.RateLimit)
	}
	if s.Burst < 1 {
		return fmt.Errorf("%s.burst must be >= 1, got %d", name, s.Burst)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be positive", name)
	}
	return nil
}
