// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tickloop

import (
	"sync/atomic"
)

// CallStack tracks whether synchronous execution is currently in progress.
//
// The depth counter gates queue draining: the scheduler never pops from a
// ready queue while depth > 0. Depth is incremented when the scheduler begins
// running a callback, or when the host brackets a run of synchronous code via
// [Scheduler.EnterSync], and decremented when the corresponding [ScopeGuard]
// is released.
//
// Depth underflow and double guard release are contract violations and panic.
// These invariants are load-bearing for ordering correctness, so a violation
// indicates a bug in the scheduler or the host, not a recoverable condition.
type CallStack struct {
	depth atomic.Int64
}

// Enter increments the depth and returns a guard whose release decrements it.
// Release is guaranteed via defer on all exit paths, including panics in the
// work performed while entered.
func (s *CallStack) Enter() *ScopeGuard {
	return s.enter(nil)
}

// enter is the internal variant; onExhaust, if non-nil, is invoked when the
// guard's release brings depth back to zero.
func (s *CallStack) enter(onExhaust func()) *ScopeGuard {
	s.depth.Add(1)
	return &ScopeGuard{stack: s, onExhaust: onExhaust}
}

// Depth returns the current depth.
func (s *CallStack) Depth() int {
	return int(s.depth.Load())
}

// IsEmpty reports whether no synchronous execution is in progress.
func (s *CallStack) IsEmpty() bool {
	return s.depth.Load() == 0
}

// ScopeGuard is a scoped handle for one [CallStack.Enter]. Release it exactly
// once, typically via defer.
type ScopeGuard struct {
	stack     *CallStack
	onExhaust func()
	released  atomic.Bool
}

// Release decrements the stack depth. Releasing a guard twice, or releasing
// past depth zero, panics: both indicate a scheduler or host bug.
func (g *ScopeGuard) Release() {
	if !g.released.CompareAndSwap(false, true) {
		panic("tickloop: scope guard released twice")
	}
	depth := g.stack.depth.Add(-1)
	if depth < 0 {
		panic("tickloop: call stack depth underflow")
	}
	if depth == 0 && g.onExhaust != nil {
		g.onExhaust()
	}
}
