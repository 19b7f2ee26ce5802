package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/library"
	"github.com/tessro/cadence/internal/wizard"
)

var (
	playlistsUser   string
	playlistDesc    string
	playlistPublic  bool
	playlistPrivate bool
	playlistName    string
	playlistImage   string
	playlistYes     bool
)

var playlistsCmd = &cobra.Command{
	Use:     "playlists",
	Aliases: []string{"playlist", "pl"},
	Short:   "Manage playlists",
	RunE:    runPlaylistsList,
}

var playlistsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playlists",
	RunE:  runPlaylistsList,
}

var playlistsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a playlist and its songs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlaylistsShow,
}

var playlistsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistsCreate,
}

var playlistsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Rename a playlist or change its visibility",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistsEdit,
}

var playlistsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistsDelete,
}

var playlistsAddCmd = &cobra.Command{
	Use:   "add <playlist-id> <track-id>",
	Short: "Add a track to a playlist",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlaylistsAdd,
}

var playlistsRemoveCmd = &cobra.Command{
	Use:   "remove <playlist-id> <track-id>",
	Short: "Remove a track from a playlist",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlaylistsRemove,
}

func init() {
	for _, c := range []*cobra.Command{playlistsCmd, playlistsListCmd} {
		c.Flags().StringVarP(&playlistsUser, "user", "u", "", "list another user's playlists")
	}
	playlistsCreateCmd.Flags().StringVarP(&playlistDesc, "description", "d", "", "playlist description")
	playlistsCreateCmd.Flags().BoolVar(&playlistPublic, "public", false, "make the playlist public")
	playlistsEditCmd.Flags().StringVar(&playlistName, "name", "", "new name")
	playlistsEditCmd.Flags().StringVarP(&playlistDesc, "description", "d", "", "new description")
	playlistsEditCmd.Flags().BoolVar(&playlistPublic, "public", false, "make the playlist public")
	playlistsEditCmd.Flags().BoolVar(&playlistPrivate, "private", false, "make the playlist private")
	playlistsEditCmd.Flags().StringVar(&playlistImage, "image", "", "upload a cover image")
	playlistsEditCmd.MarkFlagsMutuallyExclusive("public", "private")
	playlistsDeleteCmd.Flags().BoolVarP(&playlistYes, "yes", "y", false, "skip confirmation")

	playlistsCmd.AddCommand(playlistsListCmd)
	playlistsCmd.AddCommand(playlistsShowCmd)
	playlistsCmd.AddCommand(playlistsCreateCmd)
	playlistsCmd.AddCommand(playlistsEditCmd)
	playlistsCmd.AddCommand(playlistsDeleteCmd)
	playlistsCmd.AddCommand(playlistsAddCmd)
	playlistsCmd.AddCommand(playlistsRemoveCmd)
	rootCmd.AddCommand(playlistsCmd)
}

func runPlaylistsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	userID := playlistsUser
	if userID == "" {
		if err := a.requireAuth(); err != nil {
			return err
		}
		userID = a.session.UserID()
	}

	summaries, err := library.NewPlaylists(a.client, a.logger).List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if JSONOutput() {
		return printJSON(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("No playlists")
		return nil
	}

	t := NewTable("ID", "NAME", "SONGS", "LENGTH", "PLAYS", "PUBLIC")
	for _, s := range summaries {
		t.Row(
			s.ID,
			TruncateString(s.Name, 36),
			fmt.Sprint(s.Songs),
			core.FormatClock(s.Duration),
			humanize.Comma(int64(s.PlayCount)),
			StatusIcon(s.IsPublic),
		)
	}
	t.Flush()
	return nil
}

func runPlaylistsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var id string
	if len(args) == 1 {
		id = args[0]
	} else {
		if err := a.requireAuth(); err != nil {
			return err
		}
		mine, err := a.client.ListPlaylists(ctx, a.session.UserID())
		if err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}
		if !wizard.IsTerminal() {
			return fmt.Errorf("playlist id required")
		}
		if id, err = wizard.PickPlaylist(mine); err != nil {
			return err
		}
	}

	p, err := a.client.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(p)
	}

	s := library.Summarize(*p)
	fmt.Printf("%s\n", p.Name)
	if p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}
	owner := s.Owner
	if owner == "" {
		owner = "-"
	}
	fmt.Printf("  %d songs · %s · by %s · %s plays\n\n",
		s.Songs, core.FormatClock(s.Duration), owner, humanize.Comma(int64(s.PlayCount)))
	if len(p.Songs) > 0 {
		writeTracks(os.Stdout, p.Songs)
	}
	return nil
}

func runPlaylistsCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	public := playlistPublic
	p, err := a.client.CreatePlaylist(ctx, api.PlaylistInput{
		Name:        args[0],
		Description: playlistDesc,
		IsPublic:    &public,
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	if JSONOutput() {
		return printJSON(p)
	}
	fmt.Printf("Created playlist %s (%s)\n", p.Name, p.ID)
	return nil
}

func runPlaylistsEdit(cmd *cobra.Command, args []string) error {
	in := api.PlaylistInput{Name: playlistName, Description: playlistDesc}
	switch {
	case playlistPublic:
		v := true
		in.IsPublic = &v
	case playlistPrivate:
		v := false
		in.IsPublic = &v
	}
	changes := in != (api.PlaylistInput{})
	if !changes && playlistImage == "" {
		return fmt.Errorf("nothing to change. Pass --name, --description, --public, --private or --image")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	var p *api.Playlist
	if changes {
		if p, err = a.client.UpdatePlaylist(ctx, args[0], in); err != nil {
			return fmt.Errorf("failed to update playlist: %w", err)
		}
	}
	if playlistImage != "" {
		f, err := os.Open(playlistImage)
		if err != nil {
			return err
		}
		defer f.Close()
		if p, err = a.client.UploadPlaylistImage(ctx, args[0], api.File{Name: filepath.Base(playlistImage), Reader: f}); err != nil {
			return fmt.Errorf("failed to upload cover: %w", err)
		}
	}

	if JSONOutput() {
		return printJSON(p)
	}
	fmt.Printf("Updated playlist %s\n", p.Name)
	return nil
}

func runPlaylistsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	if !playlistYes && wizard.IsTerminal() {
		ok, err := wizard.Confirm(fmt.Sprintf("Delete playlist %s?", args[0]))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	if err := a.client.DeletePlaylist(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if !JSONOutput() {
		fmt.Println("Playlist deleted")
	}
	return nil
}

func runPlaylistsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	track, err := a.client.GetTrack(ctx, args[1])
	if err != nil {
		return err
	}
	p, err := a.client.AddSong(ctx, args[0], *track)
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	if JSONOutput() {
		return printJSON(p)
	}
	fmt.Printf("Added %s to %s (%d songs)\n", track.Title, p.Name, len(p.Songs))
	return nil
}

func runPlaylistsRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	p, err := a.client.RemoveSong(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}
	if JSONOutput() {
		return printJSON(p)
	}
	fmt.Printf("Removed track from %s (%d songs)\n", p.Name, len(p.Songs))
	return nil
}
