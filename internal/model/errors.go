package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrCorruptData          = errors.New("corrupt data")
	ErrValidation           = errors.New("validation error")
	ErrIO                   = errors.New("i/o error")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// ValidationError represents a caller-supplied input that failed a precondition.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// NotFoundError names the missing collection file or record.
type NotFoundError struct {
	Field   string
	Message string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("not found %s: %s", e.Field, e.Message)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError constructs NotFoundError
func NewNotFoundError(field, message string) NotFoundError {
	return NotFoundError{Field: field, Message: message}
}

// IsNotFoundError checks if error is NotFoundError or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IOError wraps a filesystem failure together with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewIOError wraps err as an IOError. A nil err yields nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
