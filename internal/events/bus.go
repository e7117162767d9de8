// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package events broadcasts engine happenings over an in-process Watermill
// pub/sub so downstream collaborators (web push, cache invalidation) can
// react without coupling to the engine. Delivery is best effort; a full
// subscriber never blocks a publisher.
package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/swbam/soundcheck/internal/logging"
	"github.com/swbam/soundcheck/internal/models"
)

// Topics carried by the bus.
const (
	TopicVoteRecorded   = "vote.recorded"
	TopicCycleCompleted = "sync.cycle.completed"
)

// VoteRecorded is the payload published after every applied vote.
type VoteRecorded struct {
	VoterID    string       `json:"voter_id"`
	EntryID    string       `json:"entry_id"`
	Transition string       `json:"transition"`
	Tally      models.Tally `json:"tally"`
}

// CycleCompleted is the payload published when a sync cycle reaches a
// terminal state.
type CycleCompleted struct {
	Cycle models.SyncCycle `json:"cycle"`
}

// Bus is the in-process pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the bus with a small per-subscriber buffer.
func NewBus() *Bus {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
	}
}

// Subscribe returns the topic's message stream, closed when ctx ends.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the pub/sub down; pending messages are dropped.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// publish marshals and fires one message. Publish failures are logged, not
// propagated: the engine's writes have already committed.
func (b *Bus) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

// VoteApplied publishes a vote.recorded event.
func (b *Bus) VoteApplied(voterID, entryID, transition string, tally models.Tally) {
	b.publish(TopicVoteRecorded, VoteRecorded{
		VoterID:    voterID,
		EntryID:    entryID,
		Transition: transition,
		Tally:      tally,
	})
}

// CycleCompleted publishes a sync.cycle.completed event. Satisfies the
// orchestrator's publisher contract.
func (b *Bus) CycleCompleted(cycle models.SyncCycle) {
	b.publish(TopicCycleCompleted, CycleCompleted{Cycle: cycle})
}
