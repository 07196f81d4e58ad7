package classify

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoEndpoint indicates the service endpoint is not configured.
	ErrNoEndpoint = errors.New("classify: endpoint is required")

	// ErrUnavailable indicates the breaker is open after repeated
	// failures. Callers should use their deterministic default.
	ErrUnavailable = errors.New("classify: service unavailable")
)

// APIError represents a non-200 response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("classify: API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for 429 responses.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true for 5xx responses.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}
