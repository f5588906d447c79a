package tickloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMicrotaskStarvationScenario reproduces the documented starvation hazard
// deterministically: a microtask that re-submits itself keeps the macrotask
// from running until its self-chain terminates.
func TestMicrotaskStarvationScenario(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	const bound = 1000
	var microCount, macroRuns, macroSawMicroCount int

	var m func()
	m = func() {
		microCount++
		if microCount < bound {
			s.SubmitMicrotask(m)
		}
	}

	s.SubmitMacrotask(func() {
		macroRuns++
		macroSawMicroCount = microCount
	})
	s.SubmitMicrotask(m)

	r := s.Tick()

	assert.Equal(t, bound, microCount)
	assert.Equal(t, bound, r.MicrotasksRun)
	assert.Equal(t, 1, macroRuns)
	assert.Equal(t, bound, macroSawMicroCount,
		"macrotask run counter must remain 0 until the self-chain reaches %d", bound)
	assert.True(t, r.MacrotaskRan)
	assert.True(t, r.QueuesEmpty)
}

// TestStarvationThresholdObserver verifies detection fires once per drain,
// without interrupting the drain.
func TestStarvationThresholdObserver(t *testing.T) {
	var observed []int
	s, err := New(WithStarvationThreshold(10, func(drained int) {
		observed = append(observed, drained)
	}))
	require.NoError(t, err)

	const chain = 25
	var count int
	var m func()
	m = func() {
		count++
		if count < chain {
			s.SubmitMicrotask(m)
		}
	}
	s.SubmitMicrotask(m)

	r := s.Tick()

	assert.Equal(t, chain, count, "drain must run to exhaustion despite detection")
	assert.Equal(t, chain, r.MicrotasksRun)
	require.Len(t, observed, 1, "observer fires exactly once per drain")
	assert.Equal(t, 11, observed[0], "observer fires as soon as the threshold is exceeded")
}

// TestStarvationThresholdNotTriggered verifies short drains stay silent.
func TestStarvationThresholdNotTriggered(t *testing.T) {
	var calls int
	s, err := New(WithStarvationThreshold(100, func(int) { calls++ }))
	require.NoError(t, err)

	for n := 0; n < 5; n++ {
		s.SubmitMicrotask(func() {})
	}
	s.Tick()

	assert.Zero(t, calls)
}

// TestStarvationDetectionPerDrain verifies the once-per-drain reset: each
// tick's drain gets its own detection window.
func TestStarvationDetectionPerDrain(t *testing.T) {
	var calls int
	s, err := New(WithStarvationThreshold(2, func(int) { calls++ }))
	require.NoError(t, err)

	submitBurst := func() {
		for m := 0; m < 4; m++ {
			s.SubmitMicrotask(func() {})
		}
	}

	submitBurst()
	s.Tick()
	assert.Equal(t, 1, calls)

	submitBurst()
	s.Tick()
	assert.Equal(t, 2, calls)
}
