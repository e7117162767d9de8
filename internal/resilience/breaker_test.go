// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package resilience

import (
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func failTransient() (any, error) {
	return nil, Transient("test", "op", errors.New("simulated outage"))
}

func TestBreakerOpensAfterConsecutiveTransientFailures(t *testing.T) {
	b := NewBreaker("test-open", 3, time.Minute)

	if b.State() != gobreaker.StateClosed {
		t.Fatalf("expected initial state closed, got %v", b.State())
	}

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(failTransient); err == nil {
			t.Fatal("expected failure")
		}
	}

	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open after 3 consecutive failures, got %v", b.State())
	}

	// The next call must fail fast without invoking the function.
	called := false
	_, err := b.Execute(func() (any, error) {
		called = true
		return "ok", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if called {
		t.Error("open breaker must not invoke the wrapped call")
	}
	if !Rejected(err) {
		t.Error("Rejected should recognize breaker rejections")
	}
}

func TestBreakerIgnoresPermanentFailures(t *testing.T) {
	b := NewBreaker("test-permanent", 2, time.Minute)

	for i := 0; i < 10; i++ {
		_, _ = b.Execute(func() (any, error) {
			return nil, Permanent("test", "op", errors.New("not found"))
		})
	}

	if b.State() != gobreaker.StateClosed {
		t.Errorf("permanent failures must not trip the breaker, state: %v", b.State())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("test-reset", 3, time.Minute)

	for i := 0; i < 2; i++ {
		_, _ = b.Execute(failTransient)
	}
	if _, err := b.Execute(func() (any, error) { return "ok", nil }); err != nil {
		t.Fatalf("unexpected success error: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, _ = b.Execute(failTransient)
	}

	if b.State() != gobreaker.StateClosed {
		t.Errorf("expected closed: consecutive count should reset on success, state: %v", b.State())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker("test-halfopen", 2, 50*time.Millisecond)

	for i := 0; i < 2; i++ {
		_, _ = b.Execute(failTransient)
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}

	time.Sleep(80 * time.Millisecond)

	// One trial call is allowed; success closes the breaker.
	result, err := b.Execute(func() (any, error) { return "recovered", nil })
	if err != nil {
		t.Fatalf("expected trial call to pass, got %v", err)
	}
	if result != "recovered" {
		t.Errorf("unexpected result %v", result)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("expected closed after successful trial, got %v", b.State())
	}
}

func TestBreakerReopensOnFailedTrial(t *testing.T) {
	b := NewBreaker("test-reopen", 2, 50*time.Millisecond)

	for i := 0; i < 2; i++ {
		_, _ = b.Execute(failTransient)
	}
	time.Sleep(80 * time.Millisecond)

	if _, err := b.Execute(failTransient); err == nil {
		t.Fatal("expected trial failure")
	}
	if b.State() != gobreaker.StateOpen {
		t.Errorf("expected re-open after failed trial, got %v", b.State())
	}
}
