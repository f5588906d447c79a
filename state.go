package tickloop

import (
	"sync/atomic"
)

// SchedulerState represents the current phase of the scheduler.
//
// State Machine:
//
//	StateIdle → StateRunningSync            [EnterSync()]
//	StateRunningSync → StateIdle            [last guard released; microtask drain follows]
//	StateIdle → StateDrainingMicrotasks     [Tick(), or guard release with pending microtasks]
//	StateDrainingMicrotasks → StateIdle     [microtask queue exhausted]
//	StateIdle → StateRunningMacrotask       [Tick() pops a macrotask]
//	StateRunningMacrotask → StateDrainingMicrotasks
//	                                        [macrotask returned; drain again before yielding]
//
// The state is observational: transitions are driven by Tick and EnterSync,
// never by external stores.
type SchedulerState uint32

const (
	// StateIdle indicates the call stack is empty and no queue is being drained.
	StateIdle SchedulerState = iota
	// StateRunningSync indicates host-driven synchronous execution is in progress.
	StateRunningSync
	// StateDrainingMicrotasks indicates the microtask queue is being drained.
	StateDrainingMicrotasks
	// StateRunningMacrotask indicates a macrotask callback is executing.
	StateRunningMacrotask
)

// String returns a human-readable representation of the state.
func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunningSync:
		return "RunningSync"
	case StateDrainingMicrotasks:
		return "DrainingMicrotasks"
	case StateRunningMacrotask:
		return "RunningMacrotask"
	default:
		return "Unknown"
	}
}

// stateMachine is an atomic holder for SchedulerState. Stores are only issued
// from the driving goroutine; loads may come from anywhere.
type stateMachine struct {
	v atomic.Uint32
}

func (s *stateMachine) Load() SchedulerState {
	return SchedulerState(s.v.Load())
}

func (s *stateMachine) Store(state SchedulerState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another,
// reporting whether the transition happened.
func (s *stateMachine) TryTransition(from, to SchedulerState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
