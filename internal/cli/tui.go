package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/store"
	"github.com/tessro/cadence/internal/tui"
)

var tuiRefresh int

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch interactive dashboard",
	Long: `Launch the interactive terminal dashboard.

The dashboard provides a live view with:
  • Now Playing - current track, progress, volume, shuffle and repeat
  • Queue - the play queue
  • Library - newest tracks
  • History - recently played tracks

Keyboard shortcuts:
  q, Ctrl+C    Quit
  ?            Help
  /            Search
  Space        Play/Pause
  n            Next track
  p            Previous track
  +/-          Volume up/down
  s / r        Shuffle / repeat
  f            Like
  Tab          Switch panel`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&tuiRefresh, "refresh", 0, "Refresh interval in milliseconds (default: tui.refresh_interval)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Console logs would corrupt the alt screen; only the log file is kept.
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.newRig()
	if err != nil {
		return err
	}
	defer r.Close()

	if a.session.IsAuthenticated() {
		if _, err := r.likes.Sync(ctx); err != nil {
			a.logger.Warn("liked songs not loaded", zap.Error(err))
		}
	}

	deps := tui.Deps{
		Player:   r.ctrl,
		Catalog:  a.client,
		History:  r.history,
		SignedIn: a.session.IsAuthenticated,
		LinkBase: cfg.API.MediaBase(),
		Theme:    cfg.TUI.Theme,
		Logger:   a.logger,
	}
	if a.session.IsAuthenticated() {
		deps.Likes = r.likes
	}

	refresh := tuiRefresh
	if refresh <= 0 {
		refresh = cfg.TUI.RefreshInterval
	}
	deps.RefreshRate = time.Duration(refresh) * time.Millisecond

	if fs, ok := a.store.(*store.FileStore); ok {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		changes, err := fs.Watch(watchCtx)
		if err == nil {
			deps.HistoryChanges = changes
		}
	}

	return tui.Run(ctx, deps)
}
