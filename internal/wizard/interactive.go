package wizard

import (
	"os"

	"golang.org/x/term"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
)

// Interactive provides interactive fallback functionality.
type Interactive struct {
	enabled    bool
	searchFunc SearchFunc
	isTerminal func() bool
}

// NewInteractive creates a new interactive handler.
func NewInteractive() *Interactive {
	return &Interactive{
		enabled:    true,
		isTerminal: IsTerminal,
	}
}

// SetEnabled enables or disables interactive mode.
func (i *Interactive) SetEnabled(enabled bool) {
	i.enabled = enabled
}

// SetSearchFunc sets the search function for the search wizard.
func (i *Interactive) SetSearchFunc(fn SearchFunc) {
	i.searchFunc = fn
}

// IsTerminal returns true if stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// CanInteract returns true if interactive mode is available.
func (i *Interactive) CanInteract() bool {
	return i.enabled && i.isTerminal()
}

// PromptSearch launches the search wizard if interactive mode is available.
// Returns the selected track, or nil if cancelled or not interactive.
func (i *Interactive) PromptSearch() (*core.Track, error) {
	if !i.CanInteract() || i.searchFunc == nil {
		return nil, nil
	}
	return RunSearch(i.searchFunc)
}

// PromptLogin asks for credentials when missing and interaction is possible.
// ok is false when the caller must supply credentials some other way.
func (i *Interactive) PromptLogin(creds api.Credentials) (api.Credentials, bool, error) {
	if creds.Email != "" && creds.Password != "" {
		return creds, true, nil
	}
	if !i.CanInteract() {
		return creds, false, nil
	}
	got, err := PromptLogin(creds.Email)
	if err != nil {
		return creds, false, err
	}
	return got, true, nil
}

// NeedsTrack returns true if a track argument is required but missing.
func NeedsTrack(args []string) bool {
	return len(args) == 0
}
