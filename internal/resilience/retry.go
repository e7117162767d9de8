// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package resilience

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how the pipeline retries transient failures:
// up to MaxRetries additional attempts with exponential backoff
// (BaseDelay x 2^attempt) plus +/-50% jitter, capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy matches the documented defaults: 3 retries, 200ms
// base, 10s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Backoff returns the delay before retry number attempt (0-based). The
// exponential term is capped before jitter so the jittered result stays
// within [MaxDelay/2, MaxDelay*1.5) at the high end.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay << uint(attempt)
	if delay > p.MaxDelay || delay <= 0 { // <= 0 guards shift overflow
		delay = p.MaxDelay
	}
	// +/-50% jitter: delay/2 + [0, delay)
	return delay/2 + rand.N(delay)
}
