// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package models defines the core entities of the sync and trending engine:
// artists, venues, shows, songs, setlists, setlist entries, and votes, plus
// the raw external record shape produced by source clients and the sync
// cycle report exposed to operators.
//
// Entities are plain structs persisted through the store contract. Identity
// fields (ID, Slug) are assigned once by the reconciler and never rewritten;
// denormalized vote counters on SetlistEntry are a cached projection of Vote
// rows and are only ever moved by relative adjustments.
package models
