// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package tickloop

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// schedulerOptions holds configuration options for Scheduler creation.
type schedulerOptions struct {
	clock               Clock
	logger              *logiface.Logger[logiface.Event]
	errorSink           func(error)
	trace               TraceFunc
	onStarvation        func(drained int)
	starvationThreshold int
	metricsEnabled      bool
}

// --- Scheduler Options ---

// Option configures a Scheduler instance.
type Option interface {
	apply(*schedulerOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*schedulerOptions) error
}

func (o *optionImpl) apply(opts *schedulerOptions) error {
	return o.applyFunc(opts)
}

// WithClock sets the time source used to evaluate timer deadlines.
// Defaults to [SystemClock]. Tests typically inject a [ManualClock].
func WithClock(clock Clock) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if clock == nil {
			return errors.New("tickloop: WithClock requires a non-nil clock")
		}
		opts.clock = clock
		return nil
	}}
}

// WithLogger attaches a structured logger to the Scheduler. The scheduler
// emits debug/trace events for callback execution and timer promotion, and
// error events for recovered callback failures. A nil logger disables
// logging (the default).
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the Scheduler.
// When enabled, a snapshot can be read via [Scheduler.Metrics].
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithErrorSink sets the host callback that receives recovered callback
// failures, as [*CallbackError] values. The sink is invoked on the driving
// goroutine, after the failed callback's call-stack scope has been released.
// Without a sink, failures are only logged.
func WithErrorSink(sink func(error)) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.errorSink = sink
		return nil
	}}
}

// WithTrace sets a hook invoked after every callback execution.
func WithTrace(trace TraceFunc) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.trace = trace
		return nil
	}}
}

// WithStarvationThreshold configures starvation detection. When a single
// microtask drain executes more than threshold callbacks, observer is invoked
// once with the running count, and a warning is logged. The drain itself is
// NOT interrupted: microtasks that perpetually re-enqueue themselves can
// still starve macrotask execution, which is the documented hazard this
// scheduler preserves. A threshold <= 0 disables detection (the default).
// A nil observer is permitted; detection then only logs.
func WithStarvationThreshold(threshold int, observer func(drained int)) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.starvationThreshold = threshold
		opts.onStarvation = observer
		return nil
	}}
}

// resolveOptions applies Option instances to schedulerOptions.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		clock: SystemClock{}, // default
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
