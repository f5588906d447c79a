package tickloop

import (
	"testing"
	"time"
)

func TestSystemClockMonotonicReading(t *testing.T) {
	var c SystemClock
	a := c.Now()
	b := c.Now()
	if b.Before(a) {
		t.Errorf("system clock went backwards: %v then %v", a, b)
	}
}

func TestManualClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now = %v, want %v", c.Now(), start)
	}

	got := c.Advance(250 * time.Millisecond)
	want := start.Add(250 * time.Millisecond)
	if !got.Equal(want) || !c.Now().Equal(want) {
		t.Fatalf("after Advance: got %v / Now %v, want %v", got, c.Now(), want)
	}

	// Time does not move between calls.
	if !c.Now().Equal(want) {
		t.Error("ManualClock moved without Advance")
	}
}

func TestManualClockSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	later := start.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("Now = %v, want %v", c.Now(), later)
	}
}

func TestManualClockRejectsBackwardsMotion(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	t.Run("advance negative", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("negative Advance should panic")
			}
		}()
		c.Advance(-time.Second)
	})

	t.Run("set past", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Set into the past should panic")
			}
		}()
		c.Set(start.Add(-time.Second))
	})
}
