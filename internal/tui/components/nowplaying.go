package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/tui/styles"
)

// NowPlaying displays the current track and transport state.
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel
func (n *NowPlaying) Render(state *core.PlaybackState, width, height int, focused bool) string {
	title := styles.PanelTitle("Now Playing", focused)

	var content string
	switch {
	case state == nil || state.Track == nil:
		content = styles.Muted.Render("Nothing playing")
		if state != nil && state.LastError != "" {
			content += "\n" + styles.ErrorText.Render(truncate(state.LastError, width-4))
		}
	default:
		content = n.renderTrack(state, width-4)
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

func (n *NowPlaying) renderTrack(state *core.PlaybackState, width int) string {
	track := state.Track

	icon := styles.StatusIcon(state.IsPlaying)
	heart := styles.HeartIcon(state.IsLiked(track.ID))
	title := styles.Title.Width(max(width-6, 1)).Render(truncate(track.Title, width-6))

	artist := styles.Subtitle.Render(track.DisplayArtist())
	album := styles.Dim.Render(track.Album)

	progressWidth := max(width-16, 10)
	progressBar := styles.ProgressBar(state.ProgressPercent(), progressWidth)
	progress := fmt.Sprintf("%s %s %s",
		core.FormatClock(state.Progress),
		progressBar,
		core.FormatClock(state.Duration))

	status := n.renderStatus(state)

	lines := []string{
		icon + " " + heart + " " + title,
		"    " + artist,
	}
	if track.Album != "" {
		lines = append(lines, "    "+album)
	}
	lines = append(lines, "", progress, "", status)
	if state.LastError != "" {
		lines = append(lines, styles.ErrorText.Render(truncate(state.LastError, width)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (n *NowPlaying) renderStatus(state *core.PlaybackState) string {
	transport := state.Transport.String()
	switch state.Transport {
	case core.TransportPlaying:
		transport = styles.Playing.Render(transport)
	case core.TransportLoading:
		transport = styles.Highlight.Render(transport + "…")
	default:
		transport = styles.Paused.Render(transport)
	}

	repeat := "repeat"
	if state.Repeat == core.RepeatOne {
		repeat = "repeat one"
	}

	return fmt.Sprintf("%s  %s  %s  %s",
		transport,
		styles.Toggle("shuffle", state.Shuffle),
		styles.Toggle(repeat, state.Repeat != core.RepeatOff),
		styles.Muted.Render(fmt.Sprintf("vol %d%%", int(state.Volume*100+0.5))))
}
