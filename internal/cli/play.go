package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/library"
	"github.com/tessro/cadence/internal/tail"
	"github.com/tessro/cadence/internal/wizard"
)

var (
	playID        string
	playPlaylist  string
	playLiked     bool
	playPick      bool
	playShuffle   bool
	playRepeat    string
	playNoEmoji   bool
	playTimestamp bool
	playFormat    string
)

var playCmd = &cobra.Command{
	Use:   "play [query]",
	Short: "Play tracks and follow playback",
	Long: `Play a track, a playlist or your liked songs, printing playback events
until the queue ends or you press Ctrl+C.

Without arguments on a terminal, a search picker opens.

Examples:
  cadence play "midnight city"        # Search and play the best match
  cadence play "lofi" --pick          # Choose from the matches
  cadence play --id 64f1c0            # Play a specific track
  cadence play --playlist 65a2 --shuffle
  cadence play --liked --repeat all
  cadence play --liked --format '{{.Time}} {{.Type}} {{.Title}}'`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playID, "id", "", "play a track by id")
	playCmd.Flags().StringVar(&playPlaylist, "playlist", "", "play a playlist by id")
	playCmd.Flags().BoolVar(&playLiked, "liked", false, "play your liked songs")
	playCmd.Flags().BoolVar(&playPick, "pick", false, "choose among search matches")
	playCmd.Flags().BoolVar(&playShuffle, "shuffle", false, "enable shuffle")
	playCmd.Flags().StringVar(&playRepeat, "repeat", "", "repeat mode (off, all, one)")
	playCmd.Flags().BoolVar(&playNoEmoji, "no-emoji", false, "disable emoji output")
	playCmd.Flags().BoolVarP(&playTimestamp, "timestamp", "t", false, "show timestamps")
	playCmd.Flags().StringVarP(&playFormat, "format", "f", "", "custom event template")
	playCmd.MarkFlagsMutuallyExclusive("id", "playlist", "liked")
	rootCmd.AddCommand(playCmd)
}

// eventJSON is one line of `play --json` output.
type eventJSON struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Track     *core.Track `json:"track,omitempty"`
	Position  string      `json:"position,omitempty"`
	Volume    float64     `json:"volume"`
	Error     string      `json:"error,omitempty"`
}

func toEventJSON(e tail.Event) eventJSON {
	out := eventJSON{Type: e.Type.String(), Timestamp: e.Timestamp}
	if s := e.Current; s != nil {
		out.Track = s.Track
		out.Volume = s.Volume
		if s.HasTrack() {
			out.Position = core.FormatClock(s.Progress)
		}
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return out
}

// sessionOver reports whether e leaves nothing playing: the queue ran out,
// or an error dropped the player back to idle.
func sessionOver(e tail.Event) bool {
	switch e.Type {
	case tail.EventQueueEnd:
		return true
	case tail.EventError:
		return e.Current != nil && e.Current.Transport == core.TransportIdle
	}
	return false
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	repeat := core.RepeatOff
	if playRepeat != "" {
		var ok bool
		if repeat, ok = core.ParseRepeatMode(playRepeat); !ok {
			return fmt.Errorf("repeat must be off, all or one, got %q", playRepeat)
		}
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.newRig()
	if err != nil {
		return err
	}
	defer r.Close()

	if playShuffle {
		r.ctrl.SetShuffle(true)
	}
	if playRepeat != "" {
		r.ctrl.SetRepeat(repeat)
	}

	watcher := tail.NewWatcher(64)
	detach := watcher.Attach(r.ctrl)
	defer func() {
		detach()
		watcher.Close()
	}()

	if err := startPlayback(ctx, a, r, strings.Join(args, " ")); err != nil {
		return err
	}

	formatter := tail.NewFormatter(
		tail.WithEmoji(!playNoEmoji),
		tail.WithTimestamp(playTimestamp),
		tail.WithTemplate(playFormat),
	)
	enc := json.NewEncoder(os.Stdout)

	for {
		select {
		case <-ctx.Done():
			if !JSONOutput() {
				fmt.Println()
			}
			return nil
		case e, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if JSONOutput() {
				if err := enc.Encode(toEventJSON(e)); err != nil {
					return err
				}
			} else {
				fmt.Println(formatter.Format(e))
			}
			if sessionOver(e) {
				return nil
			}
		}
	}
}

// startPlayback resolves what to play from the flags and query and starts it.
func startPlayback(ctx context.Context, a *app, r *rig, query string) error {
	switch {
	case playPlaylist != "":
		_, err := library.NewPlaylists(a.client, a.logger).Play(ctx, r.ctrl, playPlaylist, 0)
		return err

	case playLiked:
		if err := a.requireAuth(); err != nil {
			return err
		}
		tracks, err := r.likes.Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to load liked songs: %w", err)
		}
		if len(tracks) == 0 {
			return errors.New("no liked songs yet")
		}
		return r.ctrl.PlayTrack(ctx, tracks[0], tracks, 0)

	case playID != "":
		track, err := a.client.GetTrack(ctx, playID)
		if err != nil {
			return err
		}
		return r.ctrl.PlayTrack(ctx, *track, []core.Track{*track}, 0)

	case query != "":
		page, err := a.client.ListTracks(ctx, api.TrackQuery{Search: query, Limit: 20})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(page.Tracks) == 0 {
			return fmt.Errorf("no results found for '%s'", query)
		}
		index := 0
		if playPick && len(page.Tracks) > 1 && wizard.IsTerminal() {
			if index, err = wizard.PickTrack("Select track", page.Tracks); err != nil {
				return err
			}
		}
		return r.ctrl.PlayTrack(ctx, page.Tracks[index], page.Tracks, index)
	}

	interactive := wizard.NewInteractive()
	interactive.SetSearchFunc(func(q string, order wizard.SearchOrder) ([]core.Track, error) {
		sctx, cancel := context.WithTimeout(ctx, cfg.API.RequestTimeout())
		defer cancel()
		page, err := a.client.ListTracks(sctx, api.TrackQuery{
			Search:    q,
			Limit:     20,
			SortBy:    order.SortBy(),
			SortOrder: "desc",
		})
		if err != nil {
			return nil, err
		}
		return page.Tracks, nil
	})
	if !interactive.CanInteract() {
		return errors.New("nothing to play. Pass a search query, --id, --playlist or --liked")
	}

	track, err := interactive.PromptSearch()
	if err != nil {
		return err
	}
	if track == nil {
		return errors.New("nothing selected")
	}
	return r.ctrl.PlayTrack(ctx, *track, []core.Track{*track}, 0)
}
