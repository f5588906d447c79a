// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tickloop

import (
	"testing"
	"time"
)

func wheelTestBase() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestTimerWheelDeadlineOrder(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()

	// Registered out of deadline order.
	w.schedule(Callback{seq: 1}, base.Add(30*time.Millisecond))
	w.schedule(Callback{seq: 2}, base.Add(10*time.Millisecond))
	w.schedule(Callback{seq: 3}, base.Add(20*time.Millisecond))

	due := w.drainDue(base.Add(time.Second))
	if len(due) != 3 {
		t.Fatalf("drained %d entries, want 3", len(due))
	}
	for i, want := range []uint64{2, 3, 1} {
		if due[i].Seq() != want {
			t.Errorf("due[%d].Seq = %d, want %d", i, due[i].Seq(), want)
		}
	}
}

func TestTimerWheelTieBreakBySequence(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()
	when := base.Add(5 * time.Millisecond)

	// Equal deadlines; earlier submission wins.
	w.schedule(Callback{seq: 7}, when)
	w.schedule(Callback{seq: 3}, when)
	w.schedule(Callback{seq: 5}, when)

	due := w.drainDue(when)
	for i, want := range []uint64{3, 5, 7} {
		if due[i].Seq() != want {
			t.Errorf("due[%d].Seq = %d, want %d", i, due[i].Seq(), want)
		}
	}
}

func TestTimerWheelDrainDueLeavesLaterEntries(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()

	w.schedule(Callback{seq: 1}, base.Add(10*time.Millisecond))
	w.schedule(Callback{seq: 2}, base.Add(50*time.Millisecond))

	due := w.drainDue(base.Add(10 * time.Millisecond))
	if len(due) != 1 || due[0].Seq() != 1 {
		t.Fatalf("drainDue returned %v entries, want exactly seq 1", len(due))
	}
	if w.len() != 1 {
		t.Fatalf("wheel len = %d after partial drain, want 1", w.len())
	}

	// Draining again at the same instant returns nothing: an entry is
	// evaluated exactly once.
	if again := w.drainDue(base.Add(10 * time.Millisecond)); len(again) != 0 {
		t.Fatalf("second drain returned %d entries, want 0", len(again))
	}
}

func TestTimerWheelCancelPending(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()

	h := w.schedule(Callback{seq: 1}, base.Add(10*time.Millisecond))
	w.schedule(Callback{seq: 2}, base.Add(20*time.Millisecond))

	if !w.cancel(h) {
		t.Fatal("cancel of pending entry should report true")
	}
	if w.len() != 1 {
		t.Fatalf("wheel len = %d after cancel, want 1", w.len())
	}

	due := w.drainDue(base.Add(time.Second))
	if len(due) != 1 || due[0].Seq() != 2 {
		t.Fatal("cancelled entry was drained")
	}
}

func TestTimerWheelCancelIdempotent(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()

	h := w.schedule(Callback{seq: 1}, base)

	if !w.cancel(h) {
		t.Fatal("first cancel should report true")
	}
	if w.cancel(h) {
		t.Error("second cancel should be a no-op")
	}
	if w.cancel(nil) {
		t.Error("cancel of nil handle should be a no-op")
	}
}

func TestTimerWheelCancelAfterFire(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()

	h := w.schedule(Callback{seq: 1}, base)
	if len(w.drainDue(base)) != 1 {
		t.Fatal("entry should have been due")
	}

	// Fired entries are no longer cancellable; no error, no effect.
	if w.cancel(h) {
		t.Error("cancel after fire should be a no-op")
	}
}

func TestTimerWheelNext(t *testing.T) {
	var w timerWheel
	base := wheelTestBase()

	if _, ok := w.next(); ok {
		t.Fatal("empty wheel should have no next deadline")
	}

	w.schedule(Callback{seq: 1}, base.Add(20*time.Millisecond))
	w.schedule(Callback{seq: 2}, base.Add(10*time.Millisecond))

	next, ok := w.next()
	if !ok || !next.Equal(base.Add(10*time.Millisecond)) {
		t.Fatalf("next = %v (ok=%v), want %v", next, ok, base.Add(10*time.Millisecond))
	}
}
