// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

// Package middleware provides HTTP middleware shared by the API layer:
// request ID propagation and Prometheus request instrumentation.
package middleware
