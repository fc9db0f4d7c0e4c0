// Package errors provides centralized error definitions for the transitsync
// coordinators.
//
// Only lifecycle operations (Initialize, Cleanup, Hub.Start/Stop) return
// errors. Per-operation outcomes — insufficient funds, timeouts, unknown
// identifiers, duplicate transfers — are expected business results and are
// reported as booleans or sentinels by the coordinator APIs, never as errors.
//
// The package re-exports the standard library helpers so callers can import
// only this package for error handling.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Lifecycle and registry sentinel errors.
var (
	// ErrNotInitialized indicates an operation was attempted before Initialize.
	ErrNotInitialized = errors.New("coordinator not initialized")

	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = errors.New("coordinator already initialized")

	// ErrHalted indicates the shared stop signal has been tripped.
	ErrHalted = errors.New("coordinator halted")

	// ErrCleanupTimeout indicates waiters did not drain within the bounded join.
	ErrCleanupTimeout = errors.New("cleanup timed out waiting for waiters to drain")

	// ErrInvalidSeed indicates the network seed is missing required fields.
	ErrInvalidSeed = errors.New("invalid network seed")

	// ErrUnknownBus indicates a bus identifier absent from the seed registries.
	ErrUnknownBus = errors.New("unknown bus")

	// ErrUnknownStop indicates a stop identifier absent from the seed registries.
	ErrUnknownStop = errors.New("unknown stop")

	// ErrUnknownPassenger indicates a passenger identifier absent from the seed registries.
	ErrUnknownPassenger = errors.New("unknown passenger")
)

// ValidationError represents invalid input or configuration.
type ValidationError struct {
	// Field is the name of the invalid field or parameter.
	Field string
	// Message describes why the value is invalid.
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
