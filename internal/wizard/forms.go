package wizard

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
)

const minPasswordLength = 6

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validatePassword(s string) error {
	if len(s) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// PromptLogin asks for email and password. email pre-fills the form.
func PromptLogin(email string) (api.Credentials, error) {
	creds := api.Credentials{Email: email}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&creds.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(required("password")),
		),
	)
	if err := form.Run(); err != nil {
		return api.Credentials{}, fmt.Errorf("login cancelled: %w", err)
	}

	creds.Email = strings.TrimSpace(creds.Email)
	return creds, nil
}

// PromptRegistration collects a new account.
func PromptRegistration() (api.Registration, error) {
	var reg api.Registration
	var confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&reg.Name).
				Validate(required("name")),
			huh.NewInput().
				Title("Email").
				Value(&reg.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&reg.Password).
				Validate(validatePassword),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != reg.Password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return api.Registration{}, fmt.Errorf("registration cancelled: %w", err)
	}

	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	return reg, nil
}

// trackOptions builds picker options keyed by index so duplicate ids stay
// distinct.
func trackOptions(tracks []core.Track) []huh.Option[int] {
	options := make([]huh.Option[int], 0, len(tracks))
	for i, t := range tracks {
		label := fmt.Sprintf("%s - %s", t.Title, t.DisplayArtist())
		if t.Duration > 0 {
			label += " (" + core.FormatClock(t.Duration) + ")"
		}
		options = append(options, huh.NewOption(label, i))
	}
	return options
}

// PickTrack lets the user choose one of tracks and returns its index.
func PickTrack(title string, tracks []core.Track) (int, error) {
	if len(tracks) == 0 {
		return -1, errors.New("no tracks to choose from")
	}

	var selected int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Options(trackOptions(tracks)...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return -1, fmt.Errorf("selection cancelled: %w", err)
	}
	return selected, nil
}

// PickPlaylist lets the user choose a playlist and returns its id.
func PickPlaylist(playlists []api.Playlist) (string, error) {
	if len(playlists) == 0 {
		return "", errors.New("no playlists to choose from")
	}

	options := make([]huh.Option[string], 0, len(playlists))
	for _, p := range playlists {
		label := fmt.Sprintf("%s (%d songs)", p.Name, len(p.Songs))
		options = append(options, huh.NewOption(label, p.ID))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select playlist").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return selected, nil
}

// Confirm asks a yes/no question.
func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// PromptPassword asks for a single password.
func PromptPassword(title string) (string, error) {
	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required("password")),
		),
	).Run()
	if err != nil {
		return "", err
	}
	return password, nil
}

// PromptPasswordChange asks for the current password and a confirmed new one.
func PromptPasswordChange() (current, next string, err error) {
	var confirm string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(&current).
				Validate(required("current password")),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&next).
				Validate(validatePassword),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != next {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("password change cancelled: %w", err)
	}
	return current, next, nil
}
