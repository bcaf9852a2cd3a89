// Package provider implements embedding generation against external model
// APIs.
package provider

import (
	"errors"
	"fmt"
)

// ErrEmptyInput indicates the text to embed was empty after normalization.
var ErrEmptyInput = errors.New("empty input text")

// errCountMismatch indicates the API returned fewer embedding vectors than
// requested. Retryable: transient upstream issues can produce partial
// responses behind a 200 status.
var errCountMismatch = errors.New("embedding response count mismatch")

// errDimensionMismatch indicates a returned vector does not have the
// configured dimensionality. Not retryable: the model is misconfigured.
var errDimensionMismatch = errors.New("embedding dimension mismatch")

// ProviderError carries the operation and HTTP status of a failed API call.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements error.
func (e *ProviderError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("provider %s failed (status %d): %s", e.operation, e.statusCode, e.message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.operation, e.message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }

// Operation returns the failed operation name.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code (0 if not an HTTP failure).
func (e *ProviderError) StatusCode() int { return e.statusCode }
