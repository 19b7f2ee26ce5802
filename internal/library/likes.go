// Package library connects the playback controller to the Cadence API:
// likes, playlists and play counts.
package library

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
)

// LikeAPI is the part of the API client that manages likes.
type LikeAPI interface {
	LikeTrack(ctx context.Context, id string) (*api.LikeResult, error)
	UnlikeTrack(ctx context.Context, id string) error
	LikedTracks(ctx context.Context, limit int) (*api.TrackPage, error)
}

// LikeCache is the advisory liked set; *playback.Controller implements it.
type LikeCache interface {
	ToggleLike(track *core.Track) bool
	IsLiked(track *core.Track) bool
	Reconcile(id string, liked bool)
	ReplaceLiked(ids []string)
}

// Likes keeps the advisory cache in line with the server. The server's
// answer always wins.
type Likes struct {
	api    LikeAPI
	cache  LikeCache
	logger *zap.Logger
}

// NewLikes creates a Likes service. A nil logger is replaced by a no-op.
func NewLikes(a LikeAPI, cache LikeCache, logger *zap.Logger) *Likes {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Likes{api: a, cache: cache, logger: logger}
}

// Toggle flips the like on track optimistically, then applies the server's
// verdict. On failure the optimistic flip is reverted.
func (l *Likes) Toggle(ctx context.Context, track core.Track) (api.LikeResult, error) {
	if track.ID == "" {
		return api.LikeResult{}, fmt.Errorf("track has no id")
	}

	want := l.cache.ToggleLike(&track)

	var res api.LikeResult
	if want {
		r, err := l.api.LikeTrack(ctx, track.ID)
		if err != nil {
			l.revert(track.ID, want, err)
			return api.LikeResult{}, err
		}
		res = *r
	} else {
		if err := l.api.UnlikeTrack(ctx, track.ID); err != nil {
			l.revert(track.ID, want, err)
			return api.LikeResult{}, err
		}
		res = api.LikeResult{IsLiked: false, LikeCount: max(track.LikeCount-1, 0)}
	}

	if res.IsLiked != want {
		l.logger.Debug("server disagreed with like toggle",
			zap.String("track_id", track.ID),
			zap.Bool("wanted", want),
			zap.Bool("server", res.IsLiked))
	}
	l.cache.Reconcile(track.ID, res.IsLiked)
	return res, nil
}

func (l *Likes) revert(id string, attempted bool, err error) {
	l.logger.Warn("like toggle failed", zap.String("track_id", id), zap.Error(err))
	l.cache.Reconcile(id, !attempted)
}

// Sync replaces the advisory set with the server's liked tracks and returns
// them.
func (l *Likes) Sync(ctx context.Context) ([]core.Track, error) {
	page, err := l.api.LikedTracks(ctx, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		ids = append(ids, t.ID)
	}
	l.cache.ReplaceLiked(ids)
	return page.Tracks, nil
}
