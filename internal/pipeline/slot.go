// Package pipeline implements the single-slot coalescing channel primitive
// (spec.md §4.3/§9 "coalescing channel") and the capture→encode wiring built
// on top of it. The slot is the one deliberately stdlib-only primitive in
// this repository: no pack dependency offers a try-send-then-collapse
// bounded-1 queue, and spec.md calls out its exact semantics as a primitive
// that must not be altered by a general-purpose third-party queue.
package pipeline

import "sync"

// CollapseFunc merges a dropped older value into the newer one that is
// about to replace it in a Slot. The newer value's identity (e.g. its
// desktop bytes) always wins; collapse only has a say in auxiliary fields
// the newer value left unset (e.g. a nil cursor shape).
type CollapseFunc[T any] func(newer, older T) T

// Slot is a single-writer, single-reader coalescing channel: a bounded-1
// queue where an enqueue onto a full slot merges the new value with the
// stored one via the slot's CollapseFunc instead of blocking or queueing.
type Slot[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	collapse CollapseFunc[T]
	item    T
	full    bool
	closed  bool
}

// NewSlot creates an empty Slot using collapse to merge a displaced value
// into its replacement.
func NewSlot[T any](collapse CollapseFunc[T]) *Slot[T] {
	s := &Slot[T]{collapse: collapse}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// TrySend stores v in the slot, non-blocking. If the slot already holds a
// value, v is merged with it via the slot's CollapseFunc before the merged
// result replaces the slot. Returns false if the slot is closed.
func (s *Slot[T]) TrySend(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.full {
		v = s.collapse(v, s.item)
	}
	s.item = v
	s.full = true
	s.cond.Signal()
	return true
}

// Recv blocks until a value is available or the slot is closed. The second
// return value is false once the slot is closed and drained.
func (s *Slot[T]) Recv() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.full && !s.closed {
		s.cond.Wait()
	}
	if !s.full {
		var zero T
		return zero, false
	}

	v := s.item
	var zero T
	s.item = zero
	s.full = false
	return v, true
}

// Close marks the slot closed. Any Recv blocked waiting wakes with ok=false
// once a pending value (if any) has been drained.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}
