package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	commentsPage  int
	commentsLimit int
	commentAdd    string
	commentDelete string
)

var commentsCmd = &cobra.Command{
	Use:   "comments <track-id>",
	Short: "List, add or delete comments on a track",
	Long: `List the comments on a track.

Examples:
  cadence comments 64f1c0
  cadence comments 64f1c0 --add "great mix"
  cadence comments 64f1c0 --delete 6501aa`,
	Args: cobra.ExactArgs(1),
	RunE: runComments,
}

func init() {
	commentsCmd.Flags().IntVarP(&commentsPage, "page", "p", 1, "page number")
	commentsCmd.Flags().IntVarP(&commentsLimit, "limit", "n", 20, "comments per page")
	commentsCmd.Flags().StringVar(&commentAdd, "add", "", "post a comment")
	commentsCmd.Flags().StringVar(&commentDelete, "delete", "", "delete a comment by id")
	commentsCmd.MarkFlagsMutuallyExclusive("add", "delete")
	rootCmd.AddCommand(commentsCmd)
}

func runComments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	trackID := args[0]

	switch {
	case commentAdd != "":
		if err := a.requireAuth(); err != nil {
			return err
		}
		c, err := a.client.AddComment(ctx, trackID, commentAdd)
		if err != nil {
			return fmt.Errorf("failed to post comment: %w", err)
		}
		if JSONOutput() {
			return printJSON(c)
		}
		fmt.Printf("Comment posted (%s)\n", c.ID)
		return nil

	case commentDelete != "":
		if err := a.requireAuth(); err != nil {
			return err
		}
		if err := a.client.DeleteComment(ctx, commentDelete); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		if !JSONOutput() {
			fmt.Println("Comment deleted")
		}
		return nil
	}

	comments, err := a.client.Comments(ctx, trackID, commentsPage, commentsLimit)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	if JSONOutput() {
		return printJSON(comments)
	}
	if len(comments) == 0 {
		fmt.Println("No comments yet")
		return nil
	}
	for _, c := range comments {
		name := c.UserName
		if name == "" {
			name = "anonymous"
		}
		fmt.Printf("%s · %s\n  %s\n", name, ago(c.CreatedAt), c.Content)
	}
	return nil
}
