// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package queue provides the bounded single-consumer FIFO used for renderer
// actions and log lines. Pushing into a full ring evicts the oldest entry,
// so readers always see the most recent window of events.
package queue

import (
	"sync"
)

// DefaultCapacity bounds the renderer-action and log-line rings.
const DefaultCapacity = 20

// Ring is a bounded FIFO with oldest-dropped eviction. All methods are safe
// for concurrent producers; Pop is intended for a single owning consumer
// (concurrent Pops are serialized by the mutex but interleave arbitrarily).
type Ring[T any] struct {
	mu      sync.Mutex
	entries []T
	cap     int
	evicted uint64
	onEvict func()
}

// NewRing creates a ring with the given capacity. A capacity at or below
// zero falls back to DefaultCapacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring[T]{
		entries: make([]T, 0, capacity),
		cap:     capacity,
	}
}

// OnEvict registers a callback invoked (outside any user code path, under
// the ring lock) each time a push drops the oldest entry. Used to feed the
// eviction metric.
func (r *Ring[T]) OnEvict(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Push appends v, evicting the oldest entry when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == r.cap {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:r.cap-1]
		r.evicted++
		if r.onEvict != nil {
			r.onEvict()
		}
	}
	r.entries = append(r.entries, v)
}

// Pop removes and returns the oldest entry. The second return is false when
// the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if len(r.entries) == 0 {
		return zero, false
	}
	v := r.entries[0]
	copy(r.entries, r.entries[1:])
	r.entries = r.entries[:len(r.entries)-1]
	return v, true
}

// Len returns the number of buffered entries.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evicted returns the total number of entries dropped by eviction.
func (r *Ring[T]) Evicted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evicted
}

// Snapshot returns a copy of the buffered entries, oldest first, without
// consuming them.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear drops all buffered entries without counting them as evictions.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}
