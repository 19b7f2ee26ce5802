package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// truncate shortens s to limit display cells, adding an ellipsis.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 1 {
		return string(r[:1])
	}
	for len(r) > 0 && lipgloss.Width(string(r))+1 > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// fitPair truncates title and artist so "title — artist" fits in available,
// giving the artist at least a third of the space.
func fitPair(title, artist string, available, minArtist int) (string, string) {
	titleLen := lipgloss.Width(title)
	artistLen := lipgloss.Width(artist)
	if titleLen+artistLen <= available {
		return title, artist
	}

	artistSpace := max(available/3, minArtist)
	if artistSpace > available-minArtist {
		artistSpace = available - minArtist
	}
	artistSpace = min(artistSpace, artistLen)
	return truncate(title, available-artistSpace), truncate(artist, artistSpace)
}

func formatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)

	if d < time.Minute {
		return "now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return t.Format("Jan 2")
}

// window returns the [start,end) range of n rows that keeps selected visible
// in height rows.
func window(n, selected, height int) (int, int) {
	height = max(height, 1)
	if n <= height {
		return 0, n
	}
	start := selected - height/2
	start = max(0, min(start, n-height))
	return start, start + height
}
