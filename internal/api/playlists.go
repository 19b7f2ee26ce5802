package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
)

func playlistPath(id string, rest ...string) string {
	p := "/playlists/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// ListPlaylists lists playlists, optionally only those owned by userID.
func (c *Client) ListPlaylists(ctx context.Context, userID string) ([]Playlist, error) {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	env, err := c.get(ctx, "/playlists", q)
	if err != nil {
		return nil, err
	}
	var data struct {
		Playlists []wirePlaylist `json:"playlists"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	out := make([]Playlist, 0, len(data.Playlists))
	for _, w := range data.Playlists {
		out = append(out, w.toPlaylist())
	}
	return out, nil
}

// GetPlaylist fetches one playlist with its songs.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	env, err := c.get(ctx, playlistPath(id), nil)
	if err != nil {
		return nil, notFound(err, cerrors.ErrPlaylistNotFound)
	}
	return decodePlaylist(env)
}

// CreatePlaylist creates a playlist.
func (c *Client) CreatePlaylist(ctx context.Context, in PlaylistInput) (*Playlist, error) {
	env, err := c.do(ctx, call{method: http.MethodPost, path: "/playlists", body: in, noRetry: true})
	if err != nil {
		return nil, err
	}
	return decodePlaylist(env)
}

// UpdatePlaylist changes a playlist's name, description or visibility.
func (c *Client) UpdatePlaylist(ctx context.Context, id string, in PlaylistInput) (*Playlist, error) {
	env, err := c.put(ctx, playlistPath(id), in)
	if err != nil {
		return nil, notFound(err, cerrors.ErrPlaylistNotFound)
	}
	return decodePlaylist(env)
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	_, err := c.delete(ctx, playlistPath(id), nil)
	return notFound(err, cerrors.ErrPlaylistNotFound)
}

// songRef is the song body the server expects when adding to a playlist.
type songRef struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album,omitempty"`
	Audio    string  `json:"audio,omitempty"`
	Image    string  `json:"image,omitempty"`
	Duration float64 `json:"duration"`
}

// AddSong appends a track to a playlist.
func (c *Client) AddSong(ctx context.Context, playlistID string, t core.Track) (*Playlist, error) {
	body := songRef{
		ID:       t.ID,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Audio:    firstNonEmpty(t.AudioURL, t.FilePath),
		Image:    t.ImageURL,
		Duration: t.Duration.Seconds(),
	}
	env, err := c.do(ctx, call{method: http.MethodPost, path: playlistPath(playlistID, "songs"), body: body, noRetry: true})
	if err != nil {
		return nil, notFound(err, cerrors.ErrPlaylistNotFound)
	}
	return decodePlaylist(env)
}

// RemoveSong removes a track from a playlist.
func (c *Client) RemoveSong(ctx context.Context, playlistID, songID string) (*Playlist, error) {
	env, err := c.delete(ctx, playlistPath(playlistID, "songs", url.PathEscape(songID)), nil)
	if err != nil {
		return nil, notFound(err, cerrors.ErrPlaylistNotFound)
	}
	return decodePlaylist(env)
}

// IncrementPlaylistPlayCount bumps a playlist's play count. Never retried.
func (c *Client) IncrementPlaylistPlayCount(ctx context.Context, id string) (int, error) {
	env, err := c.do(ctx, call{method: http.MethodPost, path: playlistPath(id, "play"), noRetry: true})
	if err != nil {
		return 0, err
	}
	var data struct {
		PlayCount int `json:"playCount"`
	}
	if err := env.decode(&data); err != nil {
		return 0, err
	}
	return data.PlayCount, nil
}

func decodePlaylist(env *envelope) (*Playlist, error) {
	var data struct {
		Playlist wirePlaylist `json:"playlist"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	p := data.Playlist.toPlaylist()
	return &p, nil
}
