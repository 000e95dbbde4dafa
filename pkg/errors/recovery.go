// Panic recovery helpers.
//
// gonum/mat panics on out-of-range slicing and on dimension mismatches. The
// helpers below turn such panics into PanicError values so the CLI and other
// callers get an error return instead of a crash.

package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("tabloss: panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is meant to be deferred with a pointer to the caller's error
// return value. A recovered panic becomes a PanicError; if the caller already
// had an error, that error is wrapped with the panic information instead.
//
//	func (l *Loss) Compute(pred, target mat.Matrix) (loss float64, err error) {
//	    defer errors.Recover(&err, "Loss.Compute")
//	    ...
//	}
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		*err = WithStack(NewPanicError(operation, r))
	}
}

// SafeExecute executes fn and converts any panic into an error.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}

// SafeCompute is SafeExecute for functions that produce a loss value.
func SafeCompute(operation string, fn func() (float64, error)) (value float64, err error) {
	defer Recover(&err, operation)
	return fn()
}
