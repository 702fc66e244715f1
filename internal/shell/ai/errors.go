package ai

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNoProvider indicates that no configured provider is available.
	ErrNoProvider = errors.New("no AI provider available")

	// ErrMissingAPIKey indicates a provider that requires an API key was
	// called without one.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrNoRecommendation indicates the model response contained no
	// parseable recommendation.
	ErrNoRecommendation = errors.New("no recommendation in response")
)

// ProviderError represents an error from a provider API call.
type ProviderError struct {
	Provider string
	Op       string
	Status   int
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, op string, status int, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		Status:   status,
		Message:  message,
		Err:      err,
	}
}
