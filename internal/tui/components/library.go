package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/tui/styles"
)

// Library lists tracks from the server catalog.
type Library struct {
	selected int
}

// NewLibrary creates a new Library component
func NewLibrary() *Library {
	return &Library{}
}

// SelectNext selects the next track
func (l *Library) SelectNext(n int) {
	if l.selected < n-1 {
		l.selected++
	}
}

// SelectPrev selects the previous track
func (l *Library) SelectPrev() {
	if l.selected > 0 {
		l.selected--
	}
}

// Selected returns the selected track index
func (l *Library) Selected() int {
	return l.selected
}

// Render renders the library panel
func (l *Library) Render(tracks []core.Track, liked func(id string) bool, width, height int, focused bool) string {
	title := styles.PanelTitle(fmt.Sprintf("Library (%d)", len(tracks)), focused)

	var content string
	if len(tracks) == 0 {
		content = styles.Muted.Render("No tracks")
	} else {
		content = l.renderTracks(tracks, liked, width-4, height-4, focused)
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

func (l *Library) renderTracks(tracks []core.Track, liked func(string) bool, width, maxLines int, focused bool) string {
	l.selected = max(0, min(l.selected, len(tracks)-1))
	start, end := window(len(tracks), l.selected, maxLines)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		t := tracks[i]

		selector := "  "
		if focused && i == l.selected {
			selector = "▸ "
		}

		plays := humanize.Comma(int64(t.PlayCount))
		meta := fmt.Sprintf("%s  %s▶", core.FormatClock(t.Duration), plays)
		// selector (2) + heart (2) + " — " (3) + gap (1)
		available := width - 8 - lipgloss.Width(meta)
		title, artist := fitPair(t.Title, t.DisplayArtist(), available, 8)
		if i == l.selected && focused {
			title = styles.Highlight.Render(title)
		}

		left := fmt.Sprintf("%s%s %s — %s", selector, styles.HeartIcon(liked(t.ID)), title, styles.Muted.Render(artist))
		gap := max(width-lipgloss.Width(left)-lipgloss.Width(meta), 1)
		lines = append(lines, left+lipgloss.NewStyle().Width(gap).Render("")+styles.Dim.Render(meta))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
