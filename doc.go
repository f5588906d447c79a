// Package tickloop provides a deterministic, single-threaded task scheduler
// that reproduces browser-style ordering semantics: synchronous code first,
// the high-priority microtask queue drained to exhaustion before any
// macrotask, timers promoted in deadline order, and at most one macrotask per
// tick.
//
// # Architecture
//
// The scheduler is built from small, separately testable components: a
// [Clock] (mockable time source), two strict-FIFO ready queues, a timer
// wheel holding not-yet-due registrations, and a [CallStack] depth counter
// that gates all draining. The [Scheduler] owns these and exposes the
// submission API to external producers plus a host-driven [Scheduler.Tick].
//
// There is no hidden global state: every instance is an explicit,
// constructible value, so multiple independent schedulers can run in one
// process (isolated test runs rely on this).
//
// # Ordering Guarantees
//
// Within each tick:
//  1. Nothing is drained while the call stack is non-empty; re-entrant
//     ticks are inert.
//  2. The microtask queue is drained to total exhaustion, including entries
//     enqueued during the drain itself, before any macrotask runs.
//  3. Due timers are promoted to the macrotask queue, earliest deadline
//     first (ties broken by submission order), before macrotask selection.
//  4. At most one macrotask runs, followed by another full microtask drain.
//
// Microtasks that perpetually re-enqueue themselves therefore starve
// macrotask execution. That hazard is intentional and preserved; the
// [WithStarvationThreshold] option observes it without interrupting it.
// Similarly, no per-callback timeout exists: a callback that never returns
// blocks the loop, exactly as it would in the modeled runtime.
//
// # Thread Safety
//
// Producers may submit from any goroutine; queue and timer mutation is
// serialized behind a single mutex. The consumer side (Tick, EnterSync,
// Drive) is logically single-threaded and must be driven from one goroutine.
//
// # Usage
//
//	sched, err := tickloop.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sched.SubmitMacrotask(func() { fmt.Println("event") })
//	sched.SubmitMicrotask(func() { fmt.Println("deferred") })
//	handle := sched.ScheduleTimer(50*time.Millisecond, func() { fmt.Println("timer") })
//	_ = handle
//
//	for !sched.Tick().QueuesEmpty {
//	}
//
// # Error Handling
//
// A callback that panics is recovered at the point it runs, wrapped in a
// [*CallbackError] (cause [PanicError]), delivered to the host's error sink,
// and never halts the loop. Contract violations — call-stack depth underflow,
// double release of a [ScopeGuard] — panic: those invariants are load-bearing
// for ordering correctness. An empty queue is an expected condition, not an
// error, as is cancelling a timer that already fired.
package tickloop
