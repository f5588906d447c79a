package tickloop

import (
	"sync"
)

// Metrics tracks runtime statistics for the scheduler.
// Metrics are optional and attached to a Scheduler via [WithMetrics].
//
// Thread Safety:
//   - All update methods are called by the scheduler under its own lock or
//     from the driving goroutine; the internal mutex additionally makes
//     Snapshot safe from any goroutine.
type Metrics struct {
	mu sync.Mutex

	microtasksRun   uint64
	macrotasksRun   uint64
	timersFired     uint64
	timersCancelled uint64
	panicsRecovered uint64
	ticks           uint64

	queue queueMetrics
}

// queueMetrics tracks queue depth statistics.
type queueMetrics struct {
	// Current depths, sampled at the end of each tick.
	microtaskCurrent int
	macrotaskCurrent int
	timerCurrent     int

	// Maximum observed depths.
	microtaskMax int
	macrotaskMax int
	timerMax     int

	// Average depths (exponential moving average with alpha=0.1).
	// The EMA initializes to the first observed value for accuracy.
	microtaskAvg float64
	macrotaskAvg float64
	timerAvg     float64

	initialized bool
}

// MetricsSnapshot is a point-in-time copy of the scheduler's metrics, safe to
// retain and compare.
type MetricsSnapshot struct {
	MicrotasksRun   uint64
	MacrotasksRun   uint64
	TimersFired     uint64
	TimersCancelled uint64
	PanicsRecovered uint64
	Ticks           uint64

	Queue QueueMetricsSnapshot
}

// QueueMetricsSnapshot is a point-in-time copy of queue depth statistics.
type QueueMetricsSnapshot struct {
	MicrotaskCurrent int
	MacrotaskCurrent int
	TimerCurrent     int

	MicrotaskMax int
	MacrotaskMax int
	TimerMax     int

	MicrotaskAvg float64
	MacrotaskAvg float64
	TimerAvg     float64
}

// Snapshot returns a copy of the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		MicrotasksRun:   m.microtasksRun,
		MacrotasksRun:   m.macrotasksRun,
		TimersFired:     m.timersFired,
		TimersCancelled: m.timersCancelled,
		PanicsRecovered: m.panicsRecovered,
		Ticks:           m.ticks,
		Queue: QueueMetricsSnapshot{
			MicrotaskCurrent: m.queue.microtaskCurrent,
			MacrotaskCurrent: m.queue.macrotaskCurrent,
			TimerCurrent:     m.queue.timerCurrent,
			MicrotaskMax:     m.queue.microtaskMax,
			MacrotaskMax:     m.queue.macrotaskMax,
			TimerMax:         m.queue.timerMax,
			MicrotaskAvg:     m.queue.microtaskAvg,
			MacrotaskAvg:     m.queue.macrotaskAvg,
			TimerAvg:         m.queue.timerAvg,
		},
	}
}

// recordTask records one executed callback of the given priority class.
func (m *Metrics) recordTask(p Priority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch p {
	case Microtask:
		m.microtasksRun++
	case Macrotask:
		m.macrotasksRun++
	}
}

// recordTick records one completed tick.
func (m *Metrics) recordTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

// recordPanic records one recovered callback panic.
func (m *Metrics) recordPanic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicsRecovered++
}

// recordTimersFired records n timer entries promoted to the macrotask queue.
func (m *Metrics) recordTimersFired(n int) {
	if n == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timersFired += uint64(n)
}

// recordTimerCancelled records one successful timer cancellation.
func (m *Metrics) recordTimerCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timersCancelled++
}

// updateDepths updates queue depth gauges from one end-of-tick sample.
func (m *Metrics) updateDepths(micro, macro, timers int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := &m.queue
	q.microtaskCurrent = micro
	q.macrotaskCurrent = macro
	q.timerCurrent = timers
	if micro > q.microtaskMax {
		q.microtaskMax = micro
	}
	if macro > q.macrotaskMax {
		q.macrotaskMax = macro
	}
	if timers > q.timerMax {
		q.timerMax = timers
	}

	// Exponential moving average with alpha=0.1.
	// Warmstart: initialize to the first observed value for accuracy.
	if !q.initialized {
		q.microtaskAvg = float64(micro)
		q.macrotaskAvg = float64(macro)
		q.timerAvg = float64(timers)
		q.initialized = true
		return
	}
	q.microtaskAvg = 0.9*q.microtaskAvg + 0.1*float64(micro)
	q.macrotaskAvg = 0.9*q.macrotaskAvg + 0.1*float64(macro)
	q.timerAvg = 0.9*q.timerAvg + 0.1*float64(timers)
}
