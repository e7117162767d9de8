// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/swbam/soundcheck/internal/metrics"
)

// Limiter is a per-source token bucket. A call that would exceed the bucket
// blocks until a token is available, but never longer than maxWait: past
// that the call fails with ErrRateLimited instead of queueing indefinitely.
type Limiter struct {
	source  string
	bucket  *rate.Limiter
	maxWait time.Duration
}

// NewLimiter creates a token bucket for one source with the given
// requests-per-second rate, burst size, and bounded wait.
func NewLimiter(source string, rps float64, burst int, maxWait time.Duration) *Limiter {
	return &Limiter{
		source:  source,
		bucket:  rate.NewLimiter(rate.Limit(rps), burst),
		maxWait: maxWait,
	}
}

// Wait blocks until a token is available or the bounded wait expires.
// The caller's context still cancels the wait early.
func (l *Limiter) Wait(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	start := time.Now()
	err := l.bucket.Wait(waitCtx)
	metrics.RateLimitWait.WithLabelValues(l.source).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}
	// Distinguish the bound expiring from the caller going away.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	metrics.SourceRequests.WithLabelValues(l.source, "rate_limited").Inc()
	return ErrRateLimited
}

// Allow reports whether a token is immediately available, consuming one if
// so. Used by tests and non-blocking probes.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// Tokens returns the number of tokens currently available.
func (l *Limiter) Tokens() float64 {
	return l.bucket.Tokens()
}
