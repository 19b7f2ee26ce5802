package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/tui/styles"
)

// Queue displays the play queue with a selection cursor.
type Queue struct {
	selected int
}

// NewQueue creates a new Queue component
func NewQueue() *Queue {
	return &Queue{}
}

// SelectNext moves the cursor down.
func (q *Queue) SelectNext(n int) {
	if q.selected < n-1 {
		q.selected++
	}
}

// SelectPrev moves the cursor up.
func (q *Queue) SelectPrev() {
	if q.selected > 0 {
		q.selected--
	}
}

// Selected returns the selected index
func (q *Queue) Selected() int {
	return q.selected
}

// Clamp keeps the cursor inside a queue of n entries.
func (q *Queue) Clamp(n int) {
	q.selected = max(0, min(q.selected, n-1))
}

// Render renders the queue panel
func (q *Queue) Render(queue *core.Queue, width, height int, focused bool) string {
	title := "Queue"
	if queue != nil && !queue.IsEmpty() {
		title = fmt.Sprintf("Queue (%d · %s)", queue.Len(), core.FormatClock(queue.TotalDuration()))
	}
	header := styles.PanelTitle(title, focused)

	var content string
	if queue == nil || queue.IsEmpty() {
		content = styles.Muted.Render("Queue is empty")
	} else {
		content = q.renderQueue(queue, width-4, height-4, focused)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		content,
	))
}

func (q *Queue) renderQueue(queue *core.Queue, width, maxLines int, focused bool) string {
	tracks := queue.Tracks
	q.Clamp(len(tracks))

	start, end := window(len(tracks), q.selected, maxLines-1)
	lines := make([]string, 0, end-start+1)

	// "XX. " (4) + "▶ " (2) + " — " (3)
	const overhead = 9

	for i := start; i < end; i++ {
		track := tracks[i]
		num := fmt.Sprintf("%2d.", i+1)
		title, artist := fitPair(track.Title, track.DisplayArtist(), width-overhead, 10)

		marker := "  "
		if focused && i == q.selected {
			marker = "▸ "
		}

		var line string
		if i == queue.CurrentIndex {
			line = styles.Playing.Render(fmt.Sprintf("%s▶ %s — %s", num, title, artist))
		} else {
			line = fmt.Sprintf("%s%s%s — %s",
				styles.Dim.Render(num),
				marker,
				title,
				styles.Muted.Render(artist))
		}
		lines = append(lines, line)
	}

	if end < len(tracks) {
		lines = append(lines, styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(tracks)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
