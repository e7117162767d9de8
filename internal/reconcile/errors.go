// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package reconcile

import (
	"errors"
	"fmt"
)

// ErrSlugExhausted is wrapped into a ReconciliationError when the numeric
// suffix probe runs out of attempts.
var ErrSlugExhausted = errors.New("reconcile: slug suffix attempts exhausted")

// ReconciliationError marks a record that could not be mapped to a stored
// identity. The batch continues; the record is counted as failed.
type ReconciliationError struct {
	Entity string
	Name   string
	Err    error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s %q: %v", e.Entity, e.Name, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// IsReconciliationError reports whether err is (or wraps) a
// ReconciliationError.
func IsReconciliationError(err error) bool {
	var re *ReconciliationError
	return errors.As(err, &re)
}
