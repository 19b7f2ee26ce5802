package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your listening history",
	RunE:  runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently played tracks",
	RunE:  runHistoryList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear your listening history",
	RunE:  runHistoryClear,
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum entries (default: all)")
	}
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.UserID() == "" {
		return fmt.Errorf("listening history is kept for signed-in users only. Run 'cadence auth login'")
	}

	h := history.New(a.store, a.session.UserID, history.WithLimit(cfg.History.Limit), history.WithLogger(a.logger))
	var entries []core.HistoryEntry
	if historyLimit > 0 {
		entries, err = h.Recent(ctx, historyLimit)
	} else {
		entries, err = h.All(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if JSONOutput() {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No history yet")
		return nil
	}

	t := NewTable("PLAYED", "TITLE", "ARTIST", "ID")
	for _, e := range entries {
		if e.Track == nil {
			continue
		}
		t.Row(ago(e.PlayedAt), TruncateString(e.Track.Title, 40), TruncateString(e.Track.DisplayArtist(), 28), e.Track.ID)
	}
	t.Flush()
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	h := history.New(a.store, a.session.UserID, history.WithLogger(a.logger))
	if err := h.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if !JSONOutput() {
		fmt.Println("History cleared")
	}
	return nil
}
