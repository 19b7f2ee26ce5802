package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	Primary   = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"} // Violet
	Secondary = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"} // Green
	Accent    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"} // Amber

	Success = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"}
	Warning = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	Error   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"}

	Border    = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
	Text      = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
	TextMuted = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	TextDim   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}
)

// Text styles
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Subtitle = lipgloss.NewStyle().
		Foreground(TextMuted)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Highlight = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Playing = lipgloss.NewStyle().
		Foreground(Success)

	Paused = lipgloss.NewStyle().
		Foreground(Warning)

	ErrorText = lipgloss.NewStyle().
		Foreground(Error)

	Liked = lipgloss.NewStyle().
		Foreground(Error)
)

// Border styles
var (
	BorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border)

	FocusedBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary)
)

// ApplyTheme forces the light or dark palette; "auto" follows the terminal.
func ApplyTheme(theme string) {
	switch theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
}

// Panel creates a styled panel with optional focus
func Panel(focused bool) lipgloss.Style {
	if focused {
		return FocusedBorder.Padding(0, 1)
	}
	return BorderStyle.Padding(0, 1)
}

// PanelTitle creates a styled panel title
func PanelTitle(title string, focused bool) string {
	style := Label
	if focused {
		style = Highlight
	}
	return style.Render(" " + title + " ")
}

// ProgressBar creates a progress bar string
func ProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))

	filledStyle := lipgloss.NewStyle().Foreground(Primary)
	emptyStyle := lipgloss.NewStyle().Foreground(Border)

	return filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("─", width-filled))
}

// StatusIcon returns an icon for playback status
func StatusIcon(playing bool) string {
	if playing {
		return Playing.Render("▶")
	}
	return Paused.Render("⏸")
}

// HeartIcon returns a filled or hollow heart.
func HeartIcon(liked bool) string {
	if liked {
		return Liked.Render("♥")
	}
	return Dim.Render("♡")
}

// Toggle renders label bright when on and dim when off.
func Toggle(label string, on bool) string {
	if on {
		return Highlight.Render(label)
	}
	return Dim.Render(label)
}
