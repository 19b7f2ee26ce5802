package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	// Playback
	ErrNoAudioSource = errors.New("track has no audio source")
	ErrLoadTimeout   = errors.New("timed out waiting for audio metadata")
	ErrPlayback      = errors.New("playback error")
	ErrSuperseded    = errors.New("load superseded by a newer request")

	// API
	ErrAPI              = errors.New("api error")
	ErrAuthExpired      = errors.New("session expired")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrTrackNotFound    = errors.New("track not found")
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrNetworkError     = errors.New("network error")
	ErrTimeout          = errors.New("request timeout")

	// Local
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// APIError is a non-2xx response from the Cadence API.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Is lets errors.Is match APIError against the sentinel taxonomy.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAPI:
		return true
	case ErrAuthExpired:
		return e.Status == 401
	case ErrForbidden:
		return e.Status == 403
	case ErrRateLimited:
		return e.Status == 429
	}
	return false
}

// CadenceError wraps an error with a user-friendly suggestion.
type CadenceError struct {
	Err        error
	Suggestion string
}

func (e *CadenceError) Error() string {
	return e.Err.Error()
}

func (e *CadenceError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &CadenceError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var cadenceErr *CadenceError
	if errors.As(err, &cadenceErr) && cadenceErr.Suggestion != "" {
		return cadenceErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	// Authentication errors
	if errors.Is(err, ErrAuthExpired) || errors.Is(err, ErrNotAuthenticated) ||
		strings.Contains(errStr, "not authenticated") || strings.Contains(errStr, "token expired") {
		return "Run 'cadence auth login' to sign in again"
	}

	if errors.Is(err, ErrForbidden) {
		return "This action requires an admin account"
	}

	// Playback errors
	if errors.Is(err, ErrNoAudioSource) {
		return "This track has no uploaded audio. Try another track"
	}
	if errors.Is(err, ErrLoadTimeout) || errors.Is(err, ErrPlayback) {
		return "The audio could not be loaded. Check the media server and try again"
	}

	if errors.Is(err, ErrTrackNotFound) || errors.Is(err, ErrPlaylistNotFound) {
		return "Run 'cadence tracks' or 'cadence playlists' to find valid IDs"
	}

	// Rate limiting
	if errors.Is(err, ErrRateLimited) || strings.Contains(errStr, "rate limit") {
		return "Too many requests. Wait a moment and try again"
	}

	// Network errors
	if errors.Is(err, ErrNetworkError) || errors.Is(err, ErrTimeout) ||
		strings.Contains(errStr, "network") || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "Check that the Cadence API is reachable (see api.base_url) and try again"
	}

	// Config errors
	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) {
		return "Run 'cadence config init' to create a configuration file"
	}

	// Server errors
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 500 {
		return "The Cadence server is having issues. Try again in a moment"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(p.Errors))
	for i, err := range p.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}
