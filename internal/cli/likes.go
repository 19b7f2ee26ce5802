package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/api"
	cerrors "github.com/tessro/cadence/internal/errors"
)

var likedLimit int

var likeCmd = &cobra.Command{
	Use:   "like <id>...",
	Short: "Like tracks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLike(cmd, args, true)
	},
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <id>...",
	Short: "Remove tracks from your liked songs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLike(cmd, args, false)
	},
}

var likedCmd = &cobra.Command{
	Use:   "liked",
	Short: "List your liked songs",
	RunE:  runLiked,
}

func init() {
	likedCmd.Flags().IntVarP(&likedLimit, "limit", "n", 50, "maximum tracks to list")
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(unlikeCmd)
	rootCmd.AddCommand(likedCmd)
}

type likeOutcome struct {
	ID        string `json:"id"`
	IsLiked   bool   `json:"isLiked"`
	LikeCount int    `json:"likeCount,omitempty"`
}

// applyLikes likes or unlikes each id, continuing past failures.
func applyLikes(ctx context.Context, c *api.Client, ids []string, like bool) *cerrors.PartialResult[[]likeOutcome] {
	res := &cerrors.PartialResult[[]likeOutcome]{}
	for _, id := range ids {
		if like {
			r, err := c.LikeTrack(ctx, id)
			if err != nil {
				res.AddError(fmt.Errorf("%s: %w", id, err))
				continue
			}
			res.Data = append(res.Data, likeOutcome{ID: id, IsLiked: r.IsLiked, LikeCount: r.LikeCount})
			continue
		}
		if err := c.UnlikeTrack(ctx, id); err != nil {
			res.AddError(fmt.Errorf("%s: %w", id, err))
			continue
		}
		res.Data = append(res.Data, likeOutcome{ID: id})
	}
	return res
}

func runLike(cmd *cobra.Command, args []string, like bool) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	res := applyLikes(ctx, a.client, args, like)

	if JSONOutput() {
		if err := printJSON(res.Data); err != nil {
			return err
		}
	} else {
		for _, o := range res.Data {
			if o.IsLiked {
				fmt.Printf("♥ %s (%d likes)\n", o.ID, o.LikeCount)
			} else {
				fmt.Printf("♡ %s\n", o.ID)
			}
		}
	}

	if res.HasErrors() {
		if len(res.Data) == 0 && len(res.Errors) == 1 {
			return res.Errors[0]
		}
		return fmt.Errorf("%s", res.ErrorSummary())
	}
	return nil
}

func runLiked(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	page, err := a.client.LikedTracks(ctx, likedLimit)
	if err != nil {
		return fmt.Errorf("failed to load liked songs: %w", err)
	}

	if JSONOutput() {
		return printJSON(page.Tracks)
	}
	if len(page.Tracks) == 0 {
		fmt.Println("No liked songs yet")
		return nil
	}
	writeTracks(os.Stdout, page.Tracks)
	return nil
}
