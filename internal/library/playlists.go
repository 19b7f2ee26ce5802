package library

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
)

// PlaylistAPI is the part of the API client that reads playlists.
type PlaylistAPI interface {
	ListPlaylists(ctx context.Context, userID string) ([]api.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*api.Playlist, error)
	IncrementPlaylistPlayCount(ctx context.Context, id string) (int, error)
}

// Playlists loads playlists and starts them on a player.
type Playlists struct {
	api    PlaylistAPI
	logger *zap.Logger
}

// NewPlaylists creates a Playlists service.
func NewPlaylists(a PlaylistAPI, logger *zap.Logger) *Playlists {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Playlists{api: a, logger: logger}
}

// Summary is a playlist line for listings.
type Summary struct {
	ID        string
	Name      string
	Owner     string
	Songs     int
	Duration  time.Duration
	PlayCount int
	IsPublic  bool
}

// Summarize reduces a playlist to its listing line.
func Summarize(p api.Playlist) Summary {
	return Summary{
		ID:        p.ID,
		Name:      p.Name,
		Owner:     p.OwnerName,
		Songs:     len(p.Songs),
		Duration:  p.TotalDuration(),
		PlayCount: p.PlayCount,
		IsPublic:  p.IsPublic,
	}
}

// List returns playlist summaries, optionally for one owner.
func (s *Playlists) List(ctx context.Context, userID string) ([]Summary, error) {
	pls, err := s.api.ListPlaylists(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(pls))
	for _, p := range pls {
		out = append(out, Summarize(p))
	}
	return out, nil
}

// Play loads playlist id and starts its songs on player at index start.
// The playlist's play count is bumped best-effort.
func (s *Playlists) Play(ctx context.Context, player core.Player, id string, start int) (*api.Playlist, error) {
	p, err := s.api.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(p.Songs) == 0 {
		return p, fmt.Errorf("playlist %q is empty", p.Name)
	}
	if start < 0 || start >= len(p.Songs) {
		start = 0
	}

	if err := player.PlayTrack(ctx, p.Songs[start], p.Songs, start); err != nil {
		return p, err
	}

	if _, err := s.api.IncrementPlaylistPlayCount(ctx, p.ID); err != nil {
		s.logger.Debug("playlist play count not recorded", zap.String("playlist_id", p.ID), zap.Error(err))
	}
	return p, nil
}
