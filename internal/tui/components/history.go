package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/tui/styles"
)

// History displays recently played tracks
type History struct {
	selected int
	now      func() time.Time
}

// NewHistory creates a new History component
func NewHistory() *History {
	return &History{now: time.Now}
}

// SelectNext selects the next entry
func (h *History) SelectNext(n int) {
	if h.selected < n-1 {
		h.selected++
	}
}

// SelectPrev selects the previous entry
func (h *History) SelectPrev() {
	if h.selected > 0 {
		h.selected--
	}
}

// Selected returns the selected entry index
func (h *History) Selected() int {
	return h.selected
}

// Render renders the history panel
func (h *History) Render(entries []core.HistoryEntry, signedIn bool, width, height int, focused bool) string {
	title := styles.PanelTitle("History", focused)

	var content string
	switch {
	case !signedIn:
		content = styles.Muted.Render("Sign in to keep a listening history")
	case len(entries) == 0:
		content = styles.Muted.Render("No history yet")
	default:
		content = h.renderHistory(entries, width-4, height-4, focused)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (h *History) renderHistory(entries []core.HistoryEntry, width, maxLines int, focused bool) string {
	h.selected = max(0, min(h.selected, len(entries)-1))
	start, end := window(len(entries), h.selected, maxLines)
	now := h.now()

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		entry := entries[i]
		track := entry.Track
		if track == nil {
			continue
		}

		timeAgo := formatTimeAgo(entry.PlayedAt, now)
		timeWidth := len(timeAgo)

		icon := "✓"
		if focused && i == h.selected {
			icon = "▸"
		}

		// icon (2) + " — " (3) + gap (1)
		available := width - 6 - timeWidth
		title, artist := fitPair(track.Title, track.DisplayArtist(), available, 8)

		trackInfo := fmt.Sprintf("%s — %s", title, artist)
		padding := max(width-2-lipgloss.Width(trackInfo)-timeWidth, 1)

		line := fmt.Sprintf("%s %s%s%s",
			styles.Dim.Render(icon),
			trackInfo,
			lipgloss.NewStyle().Width(padding).Render(""),
			styles.Dim.Render(timeAgo))

		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
