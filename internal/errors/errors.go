package errors

import (
	"errors"
	"fmt"
)

// Base error types
var (
	ErrNotConfigured = errors.New("not configured")
	ErrProvider      = errors.New("provider call failed")
	ErrInvalidInput  = errors.New("invalid input")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeProvider      ErrorType = "provider"
	ErrorTypeValidation    ErrorType = "validation"
)

// ServiceError is a structured error for gate and provider operations
type ServiceError struct {
	Type ErrorType
	Op   string // Operation that failed (e.g., "start_checkout", "lookup_session")
	Err  error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Type)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *ServiceError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotConfigured:
		return e.Type == ErrorTypeConfiguration
	case ErrProvider:
		return e.Type == ErrorTypeProvider
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	}

	return errors.Is(e.Err, target)
}

// NewConfigurationError wraps a missing-configuration condition with context.
func NewConfigurationError(op string, err error) error {
	return &ServiceError{Type: ErrorTypeConfiguration, Op: op, Err: err}
}

// NewProviderError wraps a failed remote provider call with context.
func NewProviderError(op string, err error) error {
	return &ServiceError{Type: ErrorTypeProvider, Op: op, Err: err}
}

// NewValidationError wraps a rejected user input with context.
func NewValidationError(op string, err error) error {
	return &ServiceError{Type: ErrorTypeValidation, Op: op, Err: err}
}

// IsConfigurationError checks if an error is a missing-configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsProviderError checks if an error comes from a remote provider call
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProvider)
}

// IsValidationError checks if an error is a rejected user input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
