package tickloop

import "time"

// Priority classifies a callback into one of the two ready queues.
type Priority uint8

const (
	// Microtask callbacks are drained to exhaustion before any macrotask runs.
	Microtask Priority = iota
	// Macrotask callbacks run at most one per tick, after the microtask drain.
	Macrotask
)

// String returns a human-readable representation of the priority class.
func (p Priority) String() string {
	switch p {
	case Microtask:
		return "microtask"
	case Macrotask:
		return "macrotask"
	default:
		return "unknown"
	}
}

// Callback is an opaque unit of deferred work. It owns whatever state its
// function closed over, and runs exactly once.
//
// Callbacks are constructed internally at submission time; the scheduler
// assigns a monotonic sequence id used for tie-breaking and tracing, and
// records the producer's origin tag for diagnostics.
type Callback struct {
	fn       func()
	origin   string
	seq      uint64
	priority Priority
}

// Seq returns the callback's sequence id, assigned at submission time.
// Sequence ids are monotonic per scheduler instance.
func (c Callback) Seq() uint64 { return c.seq }

// Origin returns the free-form tag identifying the producer that submitted
// the callback. Empty for untagged submissions.
func (c Callback) Origin() string { return c.origin }

// Priority returns the callback's priority class.
func (c Callback) Priority() Priority { return c.priority }

// TraceEvent describes a single callback execution, as observed by a
// [TraceFunc] hook.
type TraceEvent struct {
	Start    time.Time
	Duration time.Duration
	Origin   string
	Seq      uint64
	Priority Priority
	Panicked bool
}

// TraceFunc receives a TraceEvent after each callback execution.
//
// The hook is invoked on the driving goroutine, while the call stack is still
// entered; it must not call back into the scheduler's tick.
type TraceFunc func(TraceEvent)
