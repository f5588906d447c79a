// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tickloop

import (
	"container/heap"
	"time"
)

// timerEntry is a callback plus its deadline, held by the timer wheel until
// due or cancelled. Entries are ordered by deadline ascending, ties broken by
// submission sequence id (earlier submission wins).
type timerEntry struct {
	when time.Time
	cb   Callback

	// index is the entry's position in the heap, maintained by the heap
	// interface methods. -1 once the entry has fired or been cancelled.
	index int
}

// TimerHandle identifies a pending timer registration for cancellation.
//
// Cancellation via [Scheduler.CancelTimer] is idempotent: cancelling a handle
// whose timer already fired, or cancelling twice, is a no-op.
type TimerHandle struct {
	entry *timerEntry
}

// timerWheel holds not-yet-due timer registrations in a min-heap keyed by
// deadline. It is not safe for concurrent use; the scheduler serializes
// access behind its own mutex.
type timerWheel struct {
	entries timerHeap
}

// schedule inserts cb with the given absolute deadline and returns a
// cancellation handle.
func (w *timerWheel) schedule(cb Callback, when time.Time) *TimerHandle {
	e := &timerEntry{when: when, cb: cb}
	heap.Push(&w.entries, e)
	return &TimerHandle{entry: e}
}

// cancel removes the handle's entry if still pending. No-op for nil handles
// and for entries that already fired or were already cancelled.
func (w *timerWheel) cancel(h *TimerHandle) bool {
	if h == nil || h.entry == nil {
		return false
	}
	if h.entry.index < 0 {
		return false
	}
	heap.Remove(&w.entries, h.entry.index)
	return true
}

// drainDue removes and returns, in deadline-then-sequence order, every entry
// whose deadline is at or before now. Later entries are untouched. Each entry
// is returned exactly once; it leaves the wheel at that moment.
func (w *timerWheel) drainDue(now time.Time) []Callback {
	var due []Callback
	for len(w.entries) > 0 && !w.entries[0].when.After(now) {
		e := heap.Pop(&w.entries).(*timerEntry)
		due = append(due, e.cb)
	}
	return due
}

// next returns the earliest pending deadline, if any.
func (w *timerWheel) next() (time.Time, bool) {
	if len(w.entries) == 0 {
		return time.Time{}, false
	}
	return w.entries[0].when, true
}

// len returns the number of pending entries.
func (w *timerWheel) len() int {
	return len(w.entries)
}

// timerHeap is a min-heap of timer entries, ordered by deadline then
// submission sequence.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].cb.seq < h[j].cb.seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
