package service

import (
	"errors"
	"fmt"
)

// ErrPrecondition is returned when an operation is not valid for the current
// state of its target. Nothing is mutated when it is returned.
var ErrPrecondition = errors.New("precondition failed")

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProcessingError represents an error that occurred while applying an operation.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

func invalid(err error) error {
	return &ValidationError{Message: err.Error()}
}

// IsPrecondition returns true if err reports a failed precondition.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsValidation returns true if err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
