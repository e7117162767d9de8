// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swbam/soundcheck/internal/logging"
)

// tickService counts Serve invocations and blocks until cancelled.
type tickService struct {
	name   string
	serves atomic.Int32
}

func (s *tickService) Serve(ctx context.Context) error {
	s.serves.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *tickService) String() string { return s.name }

func TestTreeRunsServicesInBothLayers(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), DefaultTreeConfig())

	syncSvc := &tickService{name: "sync-probe"}
	apiSvc := &tickService{name: "api-probe"}
	tree.AddSyncService(syncSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for syncSvc.serves.Load() == 0 || apiSvc.serves.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("services never started: sync=%d api=%d", syncSvc.serves.Load(), apiSvc.serves.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 || cfg.FailureDecay != 30.0 {
		t.Fatalf("unexpected failure tuning: %+v", cfg)
	}
	if cfg.FailureBackoff != 15*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected timing defaults: %+v", cfg)
	}
}

func TestNewTreeAppliesDefaultsForZeroValues(t *testing.T) {
	// A zero config must not panic suture with invalid spec values.
	tree := NewTree(logging.NewSlogLogger(), TreeConfig{})
	if tree == nil {
		t.Fatal("expected a tree")
	}
}
