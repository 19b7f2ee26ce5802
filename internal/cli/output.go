package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
)

// Table provides a simple table formatter.
type Table struct {
	w       *tabwriter.Writer
	headers []string
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return NewTableWriter(os.Stdout, headers...)
}

// NewTableWriter creates a table writing to a specific writer.
func NewTableWriter(out io.Writer, headers ...string) *Table {
	t := &Table{
		w:       tabwriter.NewWriter(out, 0, 0, 2, ' ', 0),
		headers: headers,
	}
	if len(headers) > 0 {
		_, _ = t.w.Write([]byte(strings.Join(headers, "\t") + "\n"))
	}
	return t
}

// Row adds a row to the table.
func (t *Table) Row(values ...string) {
	_, _ = t.w.Write([]byte(strings.Join(values, "\t") + "\n"))
}

// Flush writes the table output.
func (t *Table) Flush() {
	_ = t.w.Flush()
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StatusIcon returns an icon for the given boolean status.
func StatusIcon(active bool) string {
	if active {
		return "●"
	}
	return "○"
}

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// FormatProgress formats a progress bar.
func FormatProgress(current, total time.Duration, width int) string {
	if total <= 0 {
		return strings.Repeat("─", width)
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

func writeTracks(out io.Writer, tracks []core.Track) {
	t := NewTableWriter(out, "ID", "TITLE", "ARTIST", "LENGTH", "PLAYS", "LIKES")
	for _, tr := range tracks {
		t.Row(
			tr.ID,
			TruncateString(tr.Title, 40),
			TruncateString(tr.DisplayArtist(), 28),
			core.FormatClock(tr.Duration),
			humanize.Comma(int64(tr.PlayCount)),
			humanize.Comma(int64(tr.LikeCount)),
		)
	}
	t.Flush()
}

func writeTrack(out io.Writer, tr *core.Track) {
	fmt.Fprintf(out, "%s\n", tr.Title)
	fmt.Fprintf(out, "  Artist:   %s\n", tr.DisplayArtist())
	if tr.Album != "" {
		fmt.Fprintf(out, "  Album:    %s\n", tr.Album)
	}
	if tr.Genre != "" {
		fmt.Fprintf(out, "  Genre:    %s\n", tr.Genre)
	}
	fmt.Fprintf(out, "  Length:   %s\n", core.FormatClock(tr.Duration))
	fmt.Fprintf(out, "  Plays:    %s\n", humanize.Comma(int64(tr.PlayCount)))
	fmt.Fprintf(out, "  Likes:    %s\n", humanize.Comma(int64(tr.LikeCount)))
	if tr.Status != "" {
		fmt.Fprintf(out, "  Status:   %s\n", tr.Status)
	}
	fmt.Fprintf(out, "  ID:       %s\n", tr.ID)
}

func writePageFooter(out io.Writer, page *api.TrackPage) {
	if page.TotalPages > 1 {
		fmt.Fprintf(out, "\nPage %d of %d (%s tracks)\n", page.Page, page.TotalPages, humanize.Comma(int64(page.Total)))
	}
}

// ago formats t relative to now, or "-" for the zero time.
func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
