// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package trending recomputes popularity rankings from current store state.
// Nothing here is incrementally maintained; the scores are a pure function
// of shows, follower counts, and vote rows, optionally memoized for the
// configured refresh interval.
package trending

import (
	"fmt"
	"time"
)

// Timeframe bounds the population considered before scoring: shows within
// the window ahead, votes within the window behind.
type Timeframe string

// Supported timeframes.
const (
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// ParseTimeframe validates a caller-supplied timeframe string.
func ParseTimeframe(raw string) (Timeframe, error) {
	switch Timeframe(raw) {
	case TimeframeDay, TimeframeWeek, TimeframeMonth:
		return Timeframe(raw), nil
	}
	return "", fmt.Errorf("trending: unknown timeframe %q", raw)
}

// Window returns the timeframe's duration.
func (tf Timeframe) Window() time.Duration {
	switch tf {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
