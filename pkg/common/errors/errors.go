package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the goasync library

var (
	// ErrDisposed indicates that an operation was attempted on a pool, queue or
	// service that has begun shutting down.
	ErrDisposed = errors.New("resource is disposed")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrWaitCancelled indicates that a blocking wait was interrupted by a
	// shutdown signal or context cancellation. It is benign.
	ErrWaitCancelled = errors.New("wait cancelled")

	// ErrFatal marks a host-level fatal abort. Panicking with an error that
	// wraps ErrFatal terminates the worker that observes it.
	ErrFatal = errors.New("fatal abort")

	// ErrOutOfMemory marks an allocation failure. Go reports real heap
	// exhaustion as a fatal runtime error, so this is raised by code that
	// enforces its own memory budget.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrNilFuture indicates that an asynchronous computation returned no
	// future to wait on.
	ErrNilFuture = errors.New("asynchronous computation returned a nil future")
)

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// WithHint attaches a remediation hint and returns the same instance.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// OperationError describes a failed operation together with its cause.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed", e.Module, e.Operation)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// WithContext attaches additional context and returns the same instance.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

// CriticalFault records a fault severe enough to stop the worker that
// observed it.
type CriticalFault struct {
	Worker string
	Value  interface{}
	Stack  []byte
}

func (e *CriticalFault) Error() string {
	return fmt.Sprintf("critical fault in thread %s: %v", e.Worker, e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *CriticalFault) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsDisposed returns true if err reports use of a disposed resource.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrDisposed)
}

// IsWaitCancelled returns true if err reports an interrupted wait.
func IsWaitCancelled(err error) bool {
	return errors.Is(err, ErrWaitCancelled)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsCriticalFault returns true if err is or wraps a CriticalFault.
func IsCriticalFault(err error) bool {
	var cf *CriticalFault
	return errors.As(err, &cf)
}

// PanicError is the fault recorded when a computation panics.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanic returns true if err is or wraps a PanicError.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}
