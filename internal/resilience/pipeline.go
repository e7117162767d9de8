// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/metrics"
)

// Pipeline composes the three policies around every outbound call for one
// source: rate-limit wait, breaker-gated attempt, retry with backoff on
// transient failure. One Pipeline instance exists per external source and
// is safe for concurrent use.
//
// No resources are held across the limiter or backoff waits, and a breaker
// rejection is surfaced immediately rather than burned through the retry
// budget: retrying cannot help before the reset timeout elapses.
type Pipeline struct {
	source  string
	limiter *Limiter
	breaker *Breaker
	retry   RetryPolicy
}

// NewPipeline builds the per-source policy stack from configuration.
func NewPipeline(source string, src config.SourceConfig, res config.ResilienceConfig) *Pipeline {
	return &Pipeline{
		source:  source,
		limiter: NewLimiter(source, src.RateLimit, src.Burst, res.LimiterMaxWait),
		breaker: NewBreaker(source, res.BreakerThreshold, res.BreakerResetTimeout),
		retry: RetryPolicy{
			MaxRetries: res.MaxRetries,
			BaseDelay:  res.RetryBaseDelay,
			MaxDelay:   res.RetryMaxDelay,
		},
	}
}

// NewPipelineWith assembles a pipeline from pre-built parts. Used by tests
// to construct isolated instances.
func NewPipelineWith(source string, limiter *Limiter, breaker *Breaker, retry RetryPolicy) *Pipeline {
	return &Pipeline{source: source, limiter: limiter, breaker: breaker, retry: retry}
}

// Breaker exposes the source's breaker so the orchestrator can grade a
// cycle Failed when it was open throughout.
func (p *Pipeline) Breaker() *Breaker {
	return p.breaker
}

// Execute runs fn through the pipeline and returns its result or the last
// error once the retry budget is exhausted.
func (p *Pipeline) Execute(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RetryAttempts.WithLabelValues(p.source).Inc()
			delay := p.retry.Backoff(attempt - 1)
			logging.Debug().
				Str("source", p.source).
				Str("op", op).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying after transient failure")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, err := p.breaker.Execute(func() (any, error) { return fn(ctx) })
		if err == nil {
			metrics.SourceRequests.WithLabelValues(p.source, "success").Inc()
			return result, nil
		}
		lastErr = err

		if Rejected(err) {
			metrics.SourceRequests.WithLabelValues(p.source, "rejected").Inc()
			return nil, err
		}
		if !IsTransient(err) {
			metrics.SourceRequests.WithLabelValues(p.source, "permanent").Inc()
			return nil, err
		}
		metrics.SourceRequests.WithLabelValues(p.source, "transient").Inc()
	}

	return nil, fmt.Errorf("%s %s: retries exhausted: %w", p.source, op, lastErr)
}

// ExecuteTyped runs fn through the pipeline and type-asserts the result.
func ExecuteTyped[T any](ctx context.Context, p *Pipeline, op string, fn func(ctx context.Context) (*T, error)) (*T, error) {
	result, err := p.Execute(ctx, op, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("pipeline: unexpected result type %T", result)
	}
	return typed, nil
}
