package errors

import "fmt"

// ClassifyHTTPError determines whether an HTTP failure should be retried:
// 4xx except 408 and 429 are irrecoverable, everything else is retried.
func ClassifyHTTPError(statusCode int, body string, underlyingErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:   getHTTPErrorCategory(statusCode),
		StatusCode: statusCode,
		Body:       body,
		Underlying: underlyingErr,
	}
}

func getHTTPErrorCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode == 408, statusCode == 429:
		return Recoverable
	case statusCode >= 400 && statusCode < 500:
		return Irrecoverable
	default:
		return Recoverable
	}
}

// NewHTTPError creates a classified error for a non-2xx response.
func NewHTTPError(statusCode int, body string, operation string) *ClassifiedError {
	return ClassifyHTTPError(statusCode, body, fmt.Errorf("%s failed: HTTP %d", operation, statusCode))
}

// NewNetworkError creates a classified error for a request that never got a
// response. These are always retried.
func NewNetworkError(operation string, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Recoverable,
		Underlying: fmt.Errorf("%s network error: %w", operation, err),
	}
}
