package tail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tessro/cadence/internal/core"
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTemplate sets a custom format template. Fields: Type, Emoji,
// Timestamp, Time, Title, Artist, Album, Position, Duration, Volume,
// Shuffle, Repeat, Error.
func WithTemplate(tmpl string) FormatterOption {
	return func(f *Formatter) {
		if tmpl != "" {
			t, err := template.New("format").Parse(tmpl)
			if err == nil {
				f.template = t
			}
		}
	}
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		showEmoji:     true,
		showTimestamp: false,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

func (f *Formatter) formatLine(e Event) string {
	var parts []string

	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}
	parts = append(parts, f.eventDescription(e))

	return strings.Join(parts, " ")
}

func (f *Formatter) formatTemplate(e Event) string {
	data := templateData{
		Type:      e.Type.String(),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
	}

	if s := e.Current; s != nil {
		if s.Track != nil {
			data.Title = s.Track.Title
			data.Artist = s.Track.DisplayArtist()
			data.Album = s.Track.Album
		}
		data.Position = core.FormatClock(s.Progress)
		data.Duration = core.FormatClock(s.Duration)
		data.Volume = volumePercent(s.Volume)
		data.Shuffle = s.Shuffle
		data.Repeat = s.Repeat.String()
	}
	if e.Err != nil {
		data.Error = e.Err.Error()
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

type templateData struct {
	Type      string
	Emoji     string
	Timestamp time.Time
	Time      string
	Title     string
	Artist    string
	Album     string
	Position  string
	Duration  string
	Volume    int
	Shuffle   bool
	Repeat    string
	Error     string
}

func volumePercent(v float64) int {
	return int(v*100 + 0.5)
}

func trackLabel(t *core.Track) string {
	return fmt.Sprintf("%s - %s", t.DisplayArtist(), t.Title)
}

// eventDescription returns a human-readable description of the event.
func (f *Formatter) eventDescription(e Event) string {
	switch e.Type {
	case EventTrackChange:
		if e.Current != nil && e.Current.Track != nil {
			return "Now playing: " + trackLabel(e.Current.Track)
		}
		return "Track changed"

	case EventTrackComplete:
		if e.Previous != nil && e.Previous.Track != nil {
			return "Finished: " + trackLabel(e.Previous.Track)
		}
		return "Track completed"

	case EventTrackSkip:
		if e.Previous != nil && e.Previous.Track != nil {
			return fmt.Sprintf("Skipped: %s at %s", trackLabel(e.Previous.Track), core.FormatClock(e.Previous.Progress))
		}
		return "Track skipped"

	case EventPause:
		if e.Current != nil {
			return "Paused at " + core.FormatClock(e.Current.Progress)
		}
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventVolumeChange:
		if e.Current != nil {
			return fmt.Sprintf("Volume: %d%%", volumePercent(e.Current.Volume))
		}
		return "Volume changed"

	case EventShuffleChange:
		if e.Current != nil && e.Current.Shuffle {
			return "Shuffle on"
		}
		return "Shuffle off"

	case EventRepeatChange:
		if e.Current != nil {
			return "Repeat: " + e.Current.Repeat.String()
		}
		return "Repeat changed"

	case EventQueueEnd:
		return "Queue finished"

	case EventError:
		if e.Err != nil {
			return "Error: " + e.Err.Error()
		}
		return "Playback error"

	default:
		return "Unknown event"
	}
}

// eventEmoji returns an emoji for the event type.
func eventEmoji(t EventType) string {
	switch t {
	case EventTrackChange:
		return "🎵"
	case EventTrackComplete:
		return "✅"
	case EventTrackSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventVolumeChange:
		return "🔊"
	case EventShuffleChange:
		return "🔀"
	case EventRepeatChange:
		return "🔁"
	case EventQueueEnd:
		return "⏹️"
	case EventError:
		return "⚠️"
	default:
		return "❓"
	}
}

// String returns the snake_case name of the event type.
func (t EventType) String() string {
	switch t {
	case EventTrackChange:
		return "track_change"
	case EventTrackComplete:
		return "track_complete"
	case EventTrackSkip:
		return "track_skip"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventVolumeChange:
		return "volume_change"
	case EventShuffleChange:
		return "shuffle_change"
	case EventRepeatChange:
		return "repeat_change"
	case EventQueueEnd:
		return "queue_end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}
