// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package trending

import (
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	data      any
	expiresAt time.Time
}

// resultCache memoizes ranked slices between refreshes. Entries expire
// after the configured TTL; expired entries are dropped on read, so no
// background sweeper is needed for the handful of keys trending produces.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// enabled reports whether caching is on at all. A zero TTL means every
// read recomputes from the store.
func (c *resultCache) enabled() bool {
	return c != nil && c.ttl > 0
}

func (c *resultCache) get(key string) (any, bool) {
	if !c.enabled() {
		return nil, false
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.data, true
}

func (c *resultCache) set(key string, data any) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func cacheKey(entity string, tf Timeframe, limit int) string {
	return fmt.Sprintf("%s|%s|%d", entity, tf, limit)
}
