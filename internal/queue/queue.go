// Package queue implements the fixed-capacity ring buffer used for
// interrupt-safe producer/consumer handoffs (spec §2), ported from
// yjkos's kernel/lib/queue.h. Unlike circbuf (a single-daemon byte
// buffer), this is a generic item queue with explicit full/empty tracking
// distinguishing "empty" from "full" at equal indices via last_was_enqueue.
package queue

import "kcore/internal/status"

// Ring is a fixed-capacity ring buffer of T.
type Ring[T any] struct {
	buf            []T
	enqueueIdx     int
	dequeueIdx     int
	lastWasEnqueue bool
}

// New returns a ring buffer with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// IsFull reports whether the ring has no free slots.
func (r *Ring[T]) IsFull() bool {
	return r.enqueueIdx == r.dequeueIdx && r.lastWasEnqueue
}

// IsEmpty reports whether the ring has no queued items.
func (r *Ring[T]) IsEmpty() bool {
	return r.enqueueIdx == r.dequeueIdx && !r.lastWasEnqueue
}

// Enqueue appends an item, returning status.NOMEM if the ring is full.
func (r *Ring[T]) Enqueue(v T) status.Err {
	if r.IsFull() {
		return status.NOMEM
	}
	r.buf[r.enqueueIdx] = v
	r.enqueueIdx = (r.enqueueIdx + 1) % len(r.buf)
	r.lastWasEnqueue = true
	return status.OK
}

// Dequeue removes and returns the oldest item. ok is false if the ring was
// empty.
func (r *Ring[T]) Dequeue() (v T, ok bool) {
	if r.IsEmpty() {
		return v, false
	}
	v = r.buf[r.dequeueIdx]
	var zero T
	r.buf[r.dequeueIdx] = zero
	r.dequeueIdx = (r.dequeueIdx + 1) % len(r.buf)
	r.lastWasEnqueue = false
	return v, true
}

// Peek returns the oldest item without removing it.
func (r *Ring[T]) Peek() (v T, ok bool) {
	if r.IsEmpty() {
		return v, false
	}
	return r.buf[r.dequeueIdx], true
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	if r.IsEmpty() {
		return 0
	}
	if r.enqueueIdx > r.dequeueIdx {
		return r.enqueueIdx - r.dequeueIdx
	}
	if r.enqueueIdx < r.dequeueIdx {
		return len(r.buf) - r.dequeueIdx + r.enqueueIdx
	}
	return len(r.buf) // full
}
