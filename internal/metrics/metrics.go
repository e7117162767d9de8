// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package metrics exposes Prometheus collectors for the sync engine,
// resilience layer, vote path, and API surface. All collectors are
// registered on the default registry via promauto and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync cycle metrics.

	SyncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_sync_cycles_total",
			Help: "Total number of completed sync cycles by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	SyncCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundcheck_sync_cycle_duration_seconds",
			Help:    "Duration of sync cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	SyncRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_sync_records_total",
			Help: "Total reconciled records by entity type and outcome",
		},
		[]string{"entity", "outcome"}, // outcome: created, updated, skipped, failed
	)

	// Resilience layer metrics.

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soundcheck_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_breaker_transitions_total",
			Help: "Circuit breaker state transitions per source",
		},
		[]string{"source", "from", "to"},
	)

	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_source_requests_total",
			Help: "Outbound source requests by source and result",
		},
		[]string{"source", "result"}, // result: success, transient, permanent, rejected, rate_limited
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_retry_attempts_total",
			Help: "Retry attempts after transient failures, per source",
		},
		[]string{"source"},
	)

	RateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundcheck_rate_limit_wait_seconds",
			Help:    "Time spent waiting for a rate limit token",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"source"},
	)

	// Vote path metrics.

	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_votes_total",
			Help: "Vote operations by transition",
		},
		[]string{"transition"}, // cast, retract, switch
	)

	VoteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_vote_errors_total",
			Help: "Rejected vote requests by reason",
		},
		[]string{"reason"}, // not_found, locked, unauthorized, invalid
	)

	RecountRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundcheck_recount_repairs_total",
			Help: "Setlist entries whose counters were corrected by a recount pass",
		},
	)

	// API metrics.

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundcheck_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	TrendingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcheck_trending_requests_total",
			Help: "Trending reads by entity type and timeframe",
		},
		[]string{"entity", "timeframe"},
	)
)
