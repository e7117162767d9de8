// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package api exposes the HTTP surface: vote casting, trending reads,
// and sync cycle control. Routing uses chi; every endpoint returns the
// models.APIResponse envelope.
package api
