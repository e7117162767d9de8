// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package resilience wraps outbound source calls with the three policies
// every external provider gets: a token-bucket rate limiter with a bounded
// wait, retry with exponential backoff and jitter for transient failures,
// and a per-source circuit breaker (sony/gobreaker).
//
// The policies compose as a pipeline: rate-limit wait, then the attempt
// gated by the breaker, then backoff-and-retry on transient failure.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrRateLimited is returned when a caller's bounded wait for a rate-limit
// token expires. Callers should back off and resubmit.
var ErrRateLimited = errors.New("rate limited: token wait exceeded bound")

// Class separates provider failures the pipeline may retry from those it
// must surface immediately.
type Class int

// Failure classes.
const (
	// ClassTransient covers timeouts, HTTP 429, and 5xx. Retried.
	ClassTransient Class = iota
	// ClassPermanent covers other 4xx and malformed responses. Not retried.
	ClassPermanent
)

func (c Class) String() string {
	if c == ClassPermanent {
		return "permanent"
	}
	return "transient"
}

// SourceError is a classified failure from one external source call.
type SourceError struct {
	Source     string
	Op         string
	Class      Class
	StatusCode int // 0 when the failure was not an HTTP status
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s failure (HTTP %d): %v", e.Source, e.Op, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s failure: %v", e.Source, e.Op, e.Class, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable source failure.
func Transient(source, op string, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Class: ClassTransient, Err: err}
}

// Permanent wraps err as a non-retryable source failure.
func Permanent(source, op string, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Class: ClassPermanent, Err: err}
}

// FromStatus classifies an HTTP error status. 429 and 5xx are transient;
// every other 4xx is permanent.
func FromStatus(source, op string, status int, err error) *SourceError {
	class := ClassPermanent
	if status == http.StatusTooManyRequests || status >= 500 {
		class = ClassTransient
	}
	return &SourceError{Source: source, Op: op, Class: class, StatusCode: status, Err: err}
}

// IsTransient reports whether err may be retried. Classified errors carry
// their class; unclassified transport errors (connection resets, timeouts,
// cancelled contexts aside) default to transient because the next attempt
// may reach the provider.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *SourceError
	if errors.As(err, &se) {
		return se.Class == ClassTransient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return true
}

// IsPermanent reports whether err is classified permanent.
func IsPermanent(err error) bool {
	var se *SourceError
	return errors.As(err, &se) && se.Class == ClassPermanent
}
