package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
)

func (q TrackQuery) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("source", q.Source)
	set("search", q.Search)
	set("genre", q.Genre)
	set("sortBy", q.SortBy)
	set("sortOrder", q.SortOrder)
	set("status", q.Status)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

func trackPath(id string, rest ...string) string {
	p := "/tracks/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// ListTracks returns one page of tracks. Source defaults to "local".
func (c *Client) ListTracks(ctx context.Context, q TrackQuery) (*TrackPage, error) {
	if q.Source == "" {
		q.Source = "local"
	}
	env, err := c.get(ctx, "/tracks", q.values())
	if err != nil {
		return nil, err
	}

	var data struct {
		Tracks []wireTrack `json:"tracks"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	page := &TrackPage{
		Tracks:     tracksToCore(data.Tracks),
		Total:      env.Total,
		TotalPages: env.TotalPages,
		Page:       env.Page,
		Count:      env.Count,
	}
	if page.Count == 0 {
		page.Count = len(page.Tracks)
	}
	if page.Total == 0 {
		page.Total = page.Count
	}
	return page, nil
}

// GetTrack fetches a single track.
func (c *Client) GetTrack(ctx context.Context, id string) (*core.Track, error) {
	env, err := c.get(ctx, trackPath(id), nil)
	if err != nil {
		return nil, notFound(err, cerrors.ErrTrackNotFound)
	}
	return decodeTrack(env)
}

// UpdateTrack changes track metadata.
func (c *Client) UpdateTrack(ctx context.Context, id string, upd TrackUpdate) (*core.Track, error) {
	env, err := c.put(ctx, trackPath(id), upd)
	if err != nil {
		return nil, notFound(err, cerrors.ErrTrackNotFound)
	}
	return decodeTrack(env)
}

// DeleteTrack removes a track.
func (c *Client) DeleteTrack(ctx context.Context, id string) error {
	_, err := c.delete(ctx, trackPath(id), nil)
	return notFound(err, cerrors.ErrTrackNotFound)
}

// LikeTrack toggles the like on a track and returns the server's verdict.
func (c *Client) LikeTrack(ctx context.Context, id string) (*LikeResult, error) {
	env, err := c.do(ctx, call{method: http.MethodPost, path: trackPath(id, "like"), noRetry: true})
	if err != nil {
		return nil, notFound(err, cerrors.ErrTrackNotFound)
	}
	var res LikeResult
	if err := env.decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UnlikeTrack removes the like on a track.
func (c *Client) UnlikeTrack(ctx context.Context, id string) error {
	_, err := c.delete(ctx, trackPath(id, "like"), nil)
	return notFound(err, cerrors.ErrTrackNotFound)
}

// Comments lists comments on a track.
func (c *Client) Comments(ctx context.Context, trackID string, page, limit int) ([]Comment, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	env, err := c.get(ctx, trackPath(trackID, "comments"), q)
	if err != nil {
		return nil, notFound(err, cerrors.ErrTrackNotFound)
	}
	var data struct {
		Comments []wireComment `json:"comments"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	out := make([]Comment, 0, len(data.Comments))
	for _, w := range data.Comments {
		out = append(out, w.toComment())
	}
	return out, nil
}

// AddComment posts a comment on a track.
func (c *Client) AddComment(ctx context.Context, trackID, content string) (*Comment, error) {
	env, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    trackPath(trackID, "comments"),
		body:    map[string]string{"content": content},
		noRetry: true,
	})
	if err != nil {
		return nil, notFound(err, cerrors.ErrTrackNotFound)
	}
	var data struct {
		Comment wireComment `json:"comment"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	cm := data.Comment.toComment()
	return &cm, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	_, err := c.delete(ctx, "/tracks/comments/"+url.PathEscape(commentID), nil)
	return err
}

// IncrementPlayCount bumps a track's play count. It is never retried, so a
// play is counted at most once per call.
func (c *Client) IncrementPlayCount(ctx context.Context, trackID string) (int, error) {
	env, err := c.do(ctx, call{method: http.MethodPost, path: trackPath(trackID, "play"), noRetry: true})
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

func decodeTrack(env *envelope) (*core.Track, error) {
	var data struct {
		Track *wireTrack `json:"track"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	if data.Track == nil {
		// Some endpoints return the track as data itself.
		var w wireTrack
		if err := env.decode(&w); err != nil {
			return nil, err
		}
		data.Track = &w
	}
	t := data.Track.toCore()
	return &t, nil
}
