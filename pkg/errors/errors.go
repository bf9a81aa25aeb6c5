package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeInvalidArgument ErrorType = "INVALID_ARGUMENT"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeBackendFailure  ErrorType = "BACKEND_FAILURE"
)

// AppError is the custom error type for the sync layer.
// Every failure surfaced to a caller is one of the three types above.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewInvalidArgument creates an error for missing or inconsistent identifiers.
// These are raised before any network call is made.
func NewInvalidArgument(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewBackendFailure creates an error for a rejected or empty collaborator call
func NewBackendFailure(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeBackendFailure,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Anything else came from the collaborator
	return &AppError{
		Type:    ErrorTypeBackendFailure,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

// TypeOf returns the error type, or "" when err is not an AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return TypeOf(err) == ErrorTypeInvalidArgument
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsBackendFailure checks if an error is a backend failure
func IsBackendFailure(err error) bool {
	return TypeOf(err) == ErrorTypeBackendFailure
}
