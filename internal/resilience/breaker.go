// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package resilience

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/metrics"
)

// Breaker is a per-source circuit breaker. It opens after a configured
// number of consecutive transient failures and fails fast (no network I/O)
// until the reset timeout elapses, then allows a single half-open trial.
//
// Permanent failures (4xx, malformed payloads) do not count against the
// breaker: they say nothing about the provider's availability.
//
// Timing uses real time via sony/gobreaker. Tests that exercise recovery
// should use a short reset timeout rather than mocking the clock.
type Breaker struct {
	source string
	cb     *gobreaker.CircuitBreaker[any]
}

// NewBreaker creates a breaker for one source.
func NewBreaker(source string, threshold uint32, resetTimeout time.Duration) *Breaker {
	metrics.BreakerState.WithLabelValues(source).Set(0)

	settings := gobreaker.Settings{
		Name:        source,
		MaxRequests: 1, // single trial call in half-open
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("source", name).
				Str("from", stateString(from)).
				Str("to", stateString(to)).
				Msg("Circuit breaker state transition")
			metrics.BreakerState.WithLabelValues(name).Set(stateFloat(to))
			metrics.BreakerTransitions.WithLabelValues(name, stateString(from), stateString(to)).Inc()
		},
	}

	return &Breaker{source: source, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// Execute runs fn under the breaker. When the breaker is open the call
// fails immediately with gobreaker.ErrOpenState.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State returns the breaker's current state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// StateName returns the state as the label used in metrics and health
// reports: closed, half-open, or open.
func (b *Breaker) StateName() string {
	return stateString(b.cb.State())
}

// Open reports whether the breaker is currently failing fast.
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Rejected reports whether err was produced by the breaker itself rather
// than the wrapped call.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
