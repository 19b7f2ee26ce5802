package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIErrorIs(t *testing.T) {
	tests := []struct {
		status int
		target error
		want   bool
	}{
		{401, ErrAuthExpired, true},
		{401, ErrAPI, true},
		{403, ErrForbidden, true},
		{429, ErrRateLimited, true},
		{500, ErrAuthExpired, false},
		{404, ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%v", tt.status, tt.target), func(t *testing.T) {
			err := fmt.Errorf("fetch track: %w", &APIError{Status: tt.status})
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%d, %v) = %v, want %v", tt.status, tt.target, got, tt.want)
			}
		})
	}
}

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"auth expired", &APIError{Status: 401}, "cadence auth login"},
		{"no source", fmt.Errorf("play: %w", ErrNoAudioSource), "no uploaded audio"},
		{"timeout", ErrLoadTimeout, "could not be loaded"},
		{"server", &APIError{Status: 503, Message: "down"}, "server is having issues"},
		{"config", ErrInvalidConfig, "cadence config init"},
		{"custom", WithSuggestion(errors.New("boom"), "do the thing"), "do the thing"},
		{"unknown", errors.New("something odd"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetSuggestion(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("GetSuggestion() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("GetSuggestion() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	got := Format(ErrTrackNotFound)
	if !strings.HasPrefix(got, "Error: track not found") || !strings.Contains(got, "Suggestion:") {
		t.Errorf("Format() = %q", got)
	}
	if Format(nil) != "" {
		t.Error("Format(nil) should be empty")
	}
}

func TestPartialResult(t *testing.T) {
	var p PartialResult[[]string]
	p.AddError(nil)
	if p.HasErrors() {
		t.Fatal("nil error should not be recorded")
	}
	p.AddError(errors.New("a"))
	if p.ErrorSummary() != "a" {
		t.Errorf("ErrorSummary() = %q", p.ErrorSummary())
	}
	p.AddError(errors.New("b"))
	if !strings.Contains(p.ErrorSummary(), "2 errors occurred") {
		t.Errorf("ErrorSummary() = %q", p.ErrorSummary())
	}
}
