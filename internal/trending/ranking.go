// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package trending

// Ranking is a finite, non-restartable ranked sequence capped at the
// caller's limit. Next drains it once; there is no rewind.
type Ranking[T any] struct {
	items []T
	pos   int
}

func newRanking[T any](items []T, limit int) *Ranking[T] {
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return &Ranking[T]{items: items}
}

// Next returns the next ranked item; ok is false once the sequence is
// drained.
func (r *Ranking[T]) Next() (item T, ok bool) {
	if r.pos >= len(r.items) {
		var zero T
		return zero, false
	}
	item = r.items[r.pos]
	r.pos++
	return item, true
}

// Remaining reports how many items are left to drain.
func (r *Ranking[T]) Remaining() int {
	return len(r.items) - r.pos
}

// Collect drains whatever is left into a slice.
func (r *Ranking[T]) Collect() []T {
	out := make([]T, 0, r.Remaining())
	for {
		item, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}
