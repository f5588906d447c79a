package tickloop

import (
	"fmt"
)

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	// Value is the value the callback panicked with.
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("tickloop: recovered panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain. If the panic Value is not an error (e.g., a
// string), returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// CallbackError describes a callback failure recovered by the tick loop. It
// is delivered to the host's error sink (see [WithErrorSink]); it is never
// propagated to the caller of [Scheduler.Tick], and never halts subsequent
// ticks.
type CallbackError struct {
	// Cause is the recovered failure, typically a [PanicError].
	Cause error
	// Origin is the producer tag of the failed callback, if any.
	Origin string
	// Seq is the failed callback's sequence id.
	Seq uint64
	// Priority is the failed callback's priority class.
	Priority Priority
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("tickloop: %s callback %d (origin %q) failed: %v",
			e.Priority, e.Seq, e.Origin, e.Cause)
	}
	return fmt.Sprintf("tickloop: %s callback %d failed: %v", e.Priority, e.Seq, e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and
// [errors.As].
func (e *CallbackError) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with a message and optional cause chain.
// The result satisfies errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
