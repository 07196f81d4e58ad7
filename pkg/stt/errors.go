package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrNotStarted is returned when audio is sent before Start.
	ErrNotStarted = errors.New("stt: session not started")

	// ErrClosed is returned when using a closed recognizer.
	ErrClosed = errors.New("stt: session closed")
)

// APIError represents an error response from the recognition API.
type APIError struct {
	// StatusCode is the HTTP status code from the handshake.
	StatusCode int

	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt: API error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// ConnectionError wraps a transport failure of the live session.
type ConnectionError struct {
	// Op identifies the failing operation (dial, read, write).
	Op string

	// Err is the underlying error.
	Err error

	// Retryable reports whether reopening the session may help.
	Retryable bool
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stt: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
