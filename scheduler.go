// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tickloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// defaultPollInterval bounds how long Drive waits between ticks when no timer
// deadline is pending.
const defaultPollInterval = 10 * time.Millisecond

var schedulerIDCounter atomic.Uint64

// Scheduler is a deterministic, single-threaded task scheduler: two ready
// queues with different priority, a timer wheel, and a call-stack depth
// counter, interleaved by a host-driven tick.
//
// Each tick drains the microtask queue to total exhaustion (including
// microtasks enqueued during the drain itself), promotes due timers into the
// macrotask queue in deadline order, runs at most one macrotask, and drains
// microtasks once more before yielding. Synchronous host code bracketed via
// [Scheduler.EnterSync] suppresses all draining until the outermost guard is
// released.
//
// Thread Safety:
//   - Submission methods and CancelTimer are safe to call from any goroutine;
//     all queue and timer mutation is serialized behind a single mutex.
//   - Tick and EnterSync must be driven from a single goroutine (the driving
//     thread). Calling Tick from within a running callback is inert.
//
// A Scheduler has no hidden global state: multiple independent instances can
// run in the same process, which is what isolated parallel tests rely on.
// There is no explicit shutdown; a scheduler simply ceases to be driven.
type Scheduler struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	// mu serializes all queue, timer wheel, and sequence mutation, so that
	// physically concurrent producers observe a consistent state. It is
	// never held while a callback executes.
	mu      sync.Mutex
	micro   *taskQueue
	macro   *taskQueue
	timers  timerWheel
	lastSeq uint64

	stack CallStack
	state stateMachine

	clock     Clock
	log       *logiface.Logger[logiface.Event]
	metrics   *Metrics
	errorSink func(error)
	trace     TraceFunc

	starvationThreshold int
	onStarvation        func(drained int)

	id uint64
}

// TickReport summarizes a single pass of the driving algorithm, for test
// assertions and for a driver loop to decide whether to keep polling.
type TickReport struct {
	// MicrotasksRun is the number of microtasks executed during this tick,
	// across both drain phases.
	MicrotasksRun int
	// TimersPromoted is the number of due timer entries moved to the
	// macrotask queue during this tick.
	TimersPromoted int
	// PanicsRecovered is the number of callbacks that failed during this
	// tick. Failures are reported to the error sink, never returned here
	// as errors.
	PanicsRecovered int
	// TimersPending is the number of not-yet-due timer registrations left
	// in the wheel at the end of the tick.
	TimersPending int
	// MacrotaskRan reports whether a macrotask executed during this tick.
	MacrotaskRan bool
	// QueuesEmpty reports whether both ready queues were empty at the end
	// of the tick. Pending timers are reported separately.
	QueuesEmpty bool
}

// New creates a Scheduler. The zero configuration uses the system clock, no
// logger, no metrics, and no starvation detection.
func New(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		id:                  schedulerIDCounter.Add(1),
		micro:               newTaskQueue(),
		macro:               newTaskQueue(),
		clock:               cfg.clock,
		log:                 cfg.logger,
		errorSink:           cfg.errorSink,
		trace:               cfg.trace,
		starvationThreshold: cfg.starvationThreshold,
		onStarvation:        cfg.onStarvation,
	}
	if cfg.metricsEnabled {
		s.metrics = &Metrics{}
	}
	return s, nil
}

// SubmitMicrotask enqueues fn into the high-priority queue. Used by
// deferred-resolution style producers. Once queued, a callback cannot be
// cancelled; it will run. A nil fn is ignored.
func (s *Scheduler) SubmitMicrotask(fn func()) {
	s.submit(fn, Microtask, "")
}

// SubmitMacrotask enqueues fn into the low-priority queue directly. Used by
// event-dispatch style producers. Once queued, a callback cannot be
// cancelled; it will run. A nil fn is ignored.
func (s *Scheduler) SubmitMacrotask(fn func()) {
	s.submit(fn, Macrotask, "")
}

// ScheduleTimer registers fn as a deadline-based macrotask via the timer
// wheel, with deadline = now + max(delay, 0), and returns a cancellation
// handle. Zero-delay timers still defer to at least the next tick's promotion
// pass: they are never executed synchronously at schedule time, yielding to
// currently running synchronous code and to the full microtask queue.
// A nil fn returns a nil handle, which CancelTimer tolerates.
func (s *Scheduler) ScheduleTimer(delay time.Duration, fn func()) *TimerHandle {
	return s.scheduleTimer(delay, fn, "")
}

// CancelTimer removes the handle's registration if still pending. It is
// idempotent: cancelling an already-fired or already-cancelled timer (or a
// nil handle) is a no-op, not an error. Only pending timers are cancellable;
// a callback already promoted to the macrotask queue will run.
func (s *Scheduler) CancelTimer(h *TimerHandle) {
	s.mu.Lock()
	cancelled := s.timers.cancel(h)
	s.mu.Unlock()
	if cancelled {
		if s.metrics != nil {
			s.metrics.recordTimerCancelled()
		}
		s.log.Debug().
			Uint64("scheduler", s.id).
			Uint64("seq", h.entry.cb.seq).
			Log("timer cancelled")
	}
}

// EnterSync brackets a run of host synchronous code (this also models
// "script start"). While the returned guard is held, ticks are inert and no
// queue is drained. Releasing the outermost guard immediately drains the
// microtask queue; macrotasks wait for the next tick. Releasing twice panics.
func (s *Scheduler) EnterSync() *ScopeGuard {
	g := s.stack.enter(s.syncExit)
	s.state.Store(StateRunningSync)
	return g
}

// syncExit runs when the outermost sync guard is released.
func (s *Scheduler) syncExit() {
	drained, panics := s.drainMicrotasks()
	s.state.Store(StateIdle)
	if drained > 0 {
		s.log.Debug().
			Uint64("scheduler", s.id).
			Int("microtasks", drained).
			Int("panics", panics).
			Log("sync exit drain")
	}
}

// Tick is a single pass of the driving algorithm, to be invoked by the host
// in a loop or on-demand:
//
//  1. If the call stack is non-empty, return immediately: re-entrant ticks
//     are inert.
//  2. Drain the microtask queue to exhaustion, including microtasks enqueued
//     during the drain.
//  3. Promote timer wheel entries whose deadline has passed into the
//     macrotask queue, in deadline-then-sequence order, then pop at most one
//     macrotask; if none is available, the tick ends.
//  4. Run the popped macrotask inside a call-stack scope, then drain
//     microtasks once more; further macrotasks wait for the next tick.
//
// Callback failures are recovered, reported to the error sink, and never
// halt the tick; Tick itself only panics on contract violations.
func (s *Scheduler) Tick() TickReport {
	var r TickReport

	// Re-entrant or mid-sync ticks are inert.
	if !s.stack.IsEmpty() {
		r.QueuesEmpty, r.TimersPending = s.depths()
		return r
	}

	r.MicrotasksRun, r.PanicsRecovered = s.drainMicrotasks()

	// A due timer is always promoted before macrotask selection, so timers
	// cannot be starved of promotion (only of execution).
	r.TimersPromoted = s.promoteDueTimers()

	s.mu.Lock()
	cb, ok := s.macro.Pop()
	s.mu.Unlock()
	if ok {
		s.state.Store(StateRunningMacrotask)
		if s.runCallback(cb) {
			r.PanicsRecovered++
		}
		r.MacrotaskRan = true

		// Microtasks enqueued by the macrotask run before the next
		// macrotask is selected, i.e. before any subsequent tick's
		// macrotask phase.
		n, p := s.drainMicrotasks()
		r.MicrotasksRun += n
		r.PanicsRecovered += p
	}

	s.state.Store(StateIdle)

	r.QueuesEmpty, r.TimersPending = s.depths()
	if s.metrics != nil {
		s.metrics.recordTick()
		s.mu.Lock()
		micro, macro, timers := s.micro.Len(), s.macro.Len(), s.timers.len()
		s.mu.Unlock()
		s.metrics.updateDepths(micro, macro, timers)
	}
	return r
}

// State returns the scheduler's current phase.
func (s *Scheduler) State() SchedulerState {
	return s.state.Load()
}

// Metrics returns a snapshot of the scheduler's metrics. The zero snapshot
// is returned when metrics were not enabled via [WithMetrics].
func (s *Scheduler) Metrics() MetricsSnapshot {
	if s.metrics == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.Snapshot()
}

// Producer returns a submission handle that tags all submissions with the
// given origin, surfaced in logs, trace events, and callback errors. External
// producers (simulated I/O completion, event dispatch) each hold their own
// Producer and invoke it when their work completes.
func (s *Scheduler) Producer(origin string) Producer {
	return Producer{s: s, origin: origin}
}

// Producer tags submissions with an origin for diagnostics. The zero value is
// not usable; obtain one from [Scheduler.Producer].
type Producer struct {
	s      *Scheduler
	origin string
}

// SubmitMicrotask enqueues fn into the high-priority queue, tagged with the
// producer's origin.
func (p Producer) SubmitMicrotask(fn func()) {
	p.s.submit(fn, Microtask, p.origin)
}

// SubmitMacrotask enqueues fn into the low-priority queue, tagged with the
// producer's origin.
func (p Producer) SubmitMacrotask(fn func()) {
	p.s.submit(fn, Macrotask, p.origin)
}

// ScheduleTimer registers a deadline-based macrotask tagged with the
// producer's origin.
func (p Producer) ScheduleTimer(delay time.Duration, fn func()) *TimerHandle {
	return p.s.scheduleTimer(delay, fn, p.origin)
}

// Drive ticks the scheduler until ctx is cancelled, waiting between ticks
// when there is no ready work. The wait is capped by pollInterval (or a
// small default when <= 0) and shortened to the earliest pending timer
// deadline. Drive returns ctx.Err().
//
// Drive is a convenience for hosts that want a background driver; hosts that
// need lockstep control call [Scheduler.Tick] directly.
func (s *Scheduler) Drive(ctx context.Context, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := s.Tick()
		if r.MacrotaskRan || r.MicrotasksRun > 0 || !r.QueuesEmpty {
			continue
		}

		wait := pollInterval
		s.mu.Lock()
		next, ok := s.timers.next()
		s.mu.Unlock()
		if ok {
			if d := next.Sub(s.clock.Now()); d < wait {
				wait = d
			}
			if wait <= 0 {
				continue
			}
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// submit builds a callback and pushes it into the ready queue for p.
func (s *Scheduler) submit(fn func(), p Priority, origin string) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.lastSeq++
	cb := Callback{fn: fn, origin: origin, seq: s.lastSeq, priority: p}
	if p == Microtask {
		s.micro.Push(cb)
	} else {
		s.macro.Push(cb)
	}
	s.mu.Unlock()

	s.log.Trace().
		Uint64("scheduler", s.id).
		Uint64("seq", cb.seq).
		Str("origin", origin).
		Stringer("priority", p).
		Log("callback submitted")
}

// scheduleTimer inserts a timer wheel entry with deadline now + max(delay, 0).
func (s *Scheduler) scheduleTimer(delay time.Duration, fn func(), origin string) *TimerHandle {
	if fn == nil {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	when := s.clock.Now().Add(delay)

	s.mu.Lock()
	s.lastSeq++
	cb := Callback{fn: fn, origin: origin, seq: s.lastSeq, priority: Macrotask}
	h := s.timers.schedule(cb, when)
	s.mu.Unlock()

	s.log.Trace().
		Uint64("scheduler", s.id).
		Uint64("seq", cb.seq).
		Str("origin", origin).
		Time("deadline", when).
		Log("timer scheduled")
	return h
}

// drainMicrotasks runs microtasks until the queue is exhausted, including
// entries added during the drain itself. This is the critical ordering
// invariant: no macrotask runs while any microtask is pending. The starvation
// hazard is intentional; detection (if configured) observes, never interrupts.
func (s *Scheduler) drainMicrotasks() (drained, panics int) {
	signalled := false
	for {
		s.mu.Lock()
		cb, ok := s.micro.Pop()
		s.mu.Unlock()
		if !ok {
			break
		}
		if drained == 0 {
			s.state.Store(StateDrainingMicrotasks)
		}
		if s.runCallback(cb) {
			panics++
		}
		drained++

		if s.starvationThreshold > 0 && drained > s.starvationThreshold && !signalled {
			signalled = true
			s.log.Warning().
				Uint64("scheduler", s.id).
				Int("drained", drained).
				Int("threshold", s.starvationThreshold).
				Log("microtask drain exceeded starvation threshold")
			if s.onStarvation != nil {
				s.onStarvation(drained)
			}
		}
	}
	return
}

// promoteDueTimers moves every due timer entry into the macrotask queue, in
// deadline-then-sequence order, and returns the count.
func (s *Scheduler) promoteDueTimers() int {
	now := s.clock.Now()
	s.mu.Lock()
	due := s.timers.drainDue(now)
	for _, cb := range due {
		s.macro.Push(cb)
	}
	s.mu.Unlock()

	if len(due) > 0 {
		if s.metrics != nil {
			s.metrics.recordTimersFired(len(due))
		}
		s.log.Debug().
			Uint64("scheduler", s.id).
			Int("promoted", len(due)).
			Time("now", now).
			Log("due timers promoted")
	}
	return len(due)
}

// runCallback executes cb inside a call-stack scope with panic recovery,
// reporting failures after the scope has been released. Returns whether the
// callback panicked.
func (s *Scheduler) runCallback(cb Callback) bool {
	err := s.invoke(cb)
	if s.metrics != nil {
		s.metrics.recordTask(cb.priority)
	}
	if err == nil {
		return false
	}

	if s.metrics != nil {
		s.metrics.recordPanic()
	}
	s.log.Err().
		Err(err).
		Uint64("scheduler", s.id).
		Uint64("seq", cb.seq).
		Str("origin", cb.origin).
		Stringer("priority", cb.priority).
		Log("callback failed")
	if s.errorSink != nil {
		s.errorSink(err)
	}
	return true
}

// invoke runs cb and converts a panic into a *CallbackError. The call-stack
// depth is restored on every exit path.
func (s *Scheduler) invoke(cb Callback) (err error) {
	guard := s.stack.Enter()
	defer guard.Release()

	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{
				Cause:    PanicError{Value: r},
				Origin:   cb.origin,
				Seq:      cb.seq,
				Priority: cb.priority,
			}
		}
		if s.trace != nil {
			s.trace(TraceEvent{
				Start:    start,
				Duration: s.clock.Now().Sub(start),
				Origin:   cb.origin,
				Seq:      cb.seq,
				Priority: cb.priority,
				Panicked: err != nil,
			})
		}
	}()

	cb.fn()
	return nil
}

// depths reports ready-queue emptiness and pending timer count.
func (s *Scheduler) depths() (queuesEmpty bool, timersPending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.micro.Len() == 0 && s.macro.Len() == 0, s.timers.len()
}
