package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/audio"
	"github.com/tessro/cadence/internal/core"
)

var (
	tracksSearch string
	tracksGenre  string
	tracksSort   string
	tracksOrder  string
	tracksSource string
	tracksPage   int
	tracksLimit  int

	trackTitle  string
	trackArtist string
	trackAlbum  string
	trackGenre  string

	uploadImage string
	uploadTags  string
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "List tracks in the library",
	Long: `List approved tracks, newest first by default.

Examples:
  cadence tracks
  cadence tracks --search "lofi" --limit 10
  cadence tracks --sort playCount --order desc`,
	RunE: runTracks,
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Show and edit a single track",
}

var trackShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show track details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackShow,
}

var trackEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit track metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackEdit,
}

var trackDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a track you uploaded",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrackDelete,
}

var trackImageCmd = &cobra.Command{
	Use:   "image <id> <file>",
	Short: "Replace a track's cover image",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrackImage,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an audio file",
	Long: `Upload an MP3, FLAC or WAV file. Title, artist, album, genre and duration
are read from the file's tags when not given as flags. New uploads wait for
admin approval before they appear in the library.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	tracksCmd.Flags().StringVarP(&tracksSearch, "search", "s", "", "search title and artist")
	tracksCmd.Flags().StringVarP(&tracksGenre, "genre", "g", "", "filter by genre")
	tracksCmd.Flags().StringVar(&tracksSort, "sort", "createdAt", "sort field (createdAt, playCount, likeCount, title)")
	tracksCmd.Flags().StringVar(&tracksOrder, "order", "desc", "sort order (asc, desc)")
	tracksCmd.Flags().StringVar(&tracksSource, "source", "local", "track source")
	tracksCmd.Flags().IntVarP(&tracksPage, "page", "p", 1, "page number")
	tracksCmd.Flags().IntVarP(&tracksLimit, "limit", "n", 20, "tracks per page")

	for _, c := range []*cobra.Command{trackEditCmd, uploadCmd} {
		c.Flags().StringVar(&trackTitle, "title", "", "track title")
		c.Flags().StringVar(&trackArtist, "artist", "", "artist")
		c.Flags().StringVar(&trackAlbum, "album", "", "album")
		c.Flags().StringVar(&trackGenre, "genre", "", "genre")
	}
	uploadCmd.Flags().StringVar(&uploadImage, "image", "", "cover image file")
	uploadCmd.Flags().StringVar(&uploadTags, "tags", "", "comma-separated tags")

	trackCmd.AddCommand(trackShowCmd)
	trackCmd.AddCommand(trackEditCmd)
	trackCmd.AddCommand(trackDeleteCmd)
	trackCmd.AddCommand(trackImageCmd)

	rootCmd.AddCommand(tracksCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(uploadCmd)
}

func runTracks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.client.ListTracks(ctx, api.TrackQuery{
		Source:    tracksSource,
		Search:    tracksSearch,
		Genre:     tracksGenre,
		Limit:     tracksLimit,
		Page:      tracksPage,
		SortBy:    tracksSort,
		SortOrder: tracksOrder,
	})
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	if JSONOutput() {
		return printJSON(page)
	}
	if len(page.Tracks) == 0 {
		fmt.Println("No tracks found")
		return nil
	}
	writeTracks(os.Stdout, page.Tracks)
	writePageFooter(os.Stdout, page)
	return nil
}

func runTrackShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	track, err := a.client.GetTrack(ctx, args[0])
	if err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(track)
	}
	writeTrack(os.Stdout, track)
	return nil
}

func optional(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func runTrackEdit(cmd *cobra.Command, args []string) error {
	upd := api.TrackUpdate{
		Title:  optional(cmd, "title", trackTitle),
		Artist: optional(cmd, "artist", trackArtist),
		Album:  optional(cmd, "album", trackAlbum),
		Genre:  optional(cmd, "genre", trackGenre),
	}
	if upd == (api.TrackUpdate{}) {
		return fmt.Errorf("nothing to change. Pass --title, --artist, --album or --genre")
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

	track, err := a.client.UpdateTrack(ctx, args[0], upd)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	if JSONOutput() {
		return printJSON(track)
	}
	fmt.Printf("Updated %s\n", track.Title)
	return nil
}

func runTrackDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	if err := a.client.DeleteTrack(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if !JSONOutput() {
		fmt.Println("Track deleted")
	}
	return nil
}

func runTrackImage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	track, err := a.client.UploadTrackImage(ctx, args[0], api.File{Name: filepath.Base(args[1]), Reader: f})
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	if JSONOutput() {
		return printJSON(track)
	}
	fmt.Printf("Updated cover for %s\n", track.Title)
	return nil
}

// uploadFromFile fills an upload from the file's tags; flags win.
func uploadFromFile(info audio.Info, path string) api.TrackUpload {
	up := api.TrackUpload{
		Title:    info.Title,
		Artist:   info.Artist,
		Album:    info.Album,
		Genre:    info.Genre,
		Duration: info.Duration.Seconds(),
		Tags:     uploadTags,
	}
	if up.Title == "" {
		up.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if trackTitle != "" {
		up.Title = trackTitle
	}
	if trackArtist != "" {
		up.Artist = trackArtist
	}
	if trackAlbum != "" {
		up.Album = trackAlbum
	}
	if trackGenre != "" {
		up.Genre = trackGenre
	}
	return up
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := audio.Probe(f, path)
	if err != nil {
		return fmt.Errorf("%s is not a supported audio file: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	up := uploadFromFile(info, path)
	up.Audio = api.File{Name: filepath.Base(path), Reader: f}
	if up.Artist == "" {
		return fmt.Errorf("no artist in tags. Pass --artist")
	}

	if uploadImage != "" {
		img, err := os.Open(uploadImage)
		if err != nil {
			return err
		}
		defer img.Close()
		up.Image = &api.File{Name: filepath.Base(uploadImage), Reader: img}
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

	if Verbose() {
		fmt.Fprintf(os.Stderr, "Uploading %s (%s, %s)\n", filepath.Base(path), info.Format, core.FormatClock(info.Duration))
	}
	track, err := a.client.UploadTrack(ctx, up)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}

	if JSONOutput() {
		return printJSON(track)
	}
	fmt.Printf("Uploaded %s - %s\n", track.Title, track.DisplayArtist())
	if track.Status == core.TrackPending {
		fmt.Println("The track will appear in the library once an admin approves it.")
	}
	return nil
}
