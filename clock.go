package tickloop

import (
	"sync"
	"time"
)

// Clock is the time source used to evaluate timer deadlines.
//
// The scheduler only ever reads the clock; it never sleeps on it. Production
// code uses [SystemClock], tests inject [ManualClock] for deterministic
// deadline evaluation.
type Clock interface {
	// Now returns the current time. Implementations should return values
	// carrying a monotonic reading where possible.
	Now() time.Time
}

// SystemClock is the default Clock, backed by [time.Now]. The returned values
// carry the runtime's monotonic reading, so timer deadlines remain accurate
// across wall-clock adjustments.
type SystemClock struct{}

// Now implements [Clock].
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock under explicit control, for deterministic tests.
// Time only moves when Advance or Set is called.
//
// All methods are safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a ManualClock reporting the given start time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements [Clock].
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
// Advancing by a negative duration panics; the clock is monotonic.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	if d < 0 {
		panic("tickloop: ManualClock.Advance called with negative duration")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t. Moving backwards panics; the clock is monotonic.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.now) {
		panic("tickloop: ManualClock.Set called with a time in the past")
	}
	c.now = t
}
