// Package errors classifies façade transport failures so the write queue knows
// which ones to retry.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors are retried with exponential backoff: 5xx responses,
	// 408/429 and connection failures.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors fail immediately: every other 4xx.
	Irrecoverable
)

func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ClassifiedError wraps an error with categorization metadata for retry policies.
type ClassifiedError struct {
	Category   ErrorCategory
	StatusCode int    // 0 for non-HTTP errors
	Body       string // server message, if any
	Underlying error
}

func (e *ClassifiedError) Error() string {
	msg := e.Underlying.Error()
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %s", e.Category, e.StatusCode, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Category, msg)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// IsIrrecoverable reports whether err, or anything it wraps, must not be retried.
func IsIrrecoverable(err error) bool {
	var ce *ClassifiedError
	return stderrors.As(err, &ce) && ce.Category == Irrecoverable
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}
