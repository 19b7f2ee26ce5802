package library

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/playback"
)

type fakeCache struct {
	liked map[string]bool
}

func newFakeCache(ids ...string) *fakeCache {
	c := &fakeCache{liked: map[string]bool{}}
	for _, id := range ids {
		c.liked[id] = true
	}
	return c
}

func (c *fakeCache) ToggleLike(t *core.Track) bool {
	c.liked[t.ID] = !c.liked[t.ID]
	return c.liked[t.ID]
}

func (c *fakeCache) IsLiked(t *core.Track) bool { return c.liked[t.ID] }

func (c *fakeCache) Reconcile(id string, liked bool) { c.liked[id] = liked }

func (c *fakeCache) ReplaceLiked(ids []string) {
	c.liked = map[string]bool{}
	for _, id := range ids {
		c.liked[id] = true
	}
}

type fakeLikeAPI struct {
	likeRes   *api.LikeResult
	likeErr   error
	unlikeErr error
	liked     []core.Track
	likes     []string
	unlikes   []string
}

func (f *fakeLikeAPI) LikeTrack(_ context.Context, id string) (*api.LikeResult, error) {
	f.likes = append(f.likes, id)
	return f.likeRes, f.likeErr
}

func (f *fakeLikeAPI) UnlikeTrack(_ context.Context, id string) error {
	f.unlikes = append(f.unlikes, id)
	return f.unlikeErr
}

func (f *fakeLikeAPI) LikedTracks(context.Context, int) (*api.TrackPage, error) {
	return &api.TrackPage{Tracks: f.liked, Total: len(f.liked)}, nil
}

func TestLikeToggle(t *testing.T) {
	tests := []struct {
		name      string
		initially []string
		api       *fakeLikeAPI
		wantLiked bool
		wantErr   bool
	}{
		{
			name:      "like confirmed",
			api:       &fakeLikeAPI{likeRes: &api.LikeResult{IsLiked: true, LikeCount: 5}},
			wantLiked: true,
		},
		{
			name:      "server wins over optimistic like",
			api:       &fakeLikeAPI{likeRes: &api.LikeResult{IsLiked: false}},
			wantLiked: false,
		},
		{
			name:      "like failure reverts",
			api:       &fakeLikeAPI{likeErr: &cerrors.APIError{Status: 500}},
			wantLiked: false,
			wantErr:   true,
		},
		{
			name:      "unlike confirmed",
			initially: []string{"t1"},
			api:       &fakeLikeAPI{},
			wantLiked: false,
		},
		{
			name:      "unlike failure reverts",
			initially: []string{"t1"},
			api:       &fakeLikeAPI{unlikeErr: cerrors.ErrNetworkError},
			wantLiked: true,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newFakeCache(tt.initially...)
			l := NewLikes(tt.api, cache, nil)

			_, err := l.Toggle(context.Background(), core.Track{ID: "t1", LikeCount: 4})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Toggle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := cache.liked["t1"]; got != tt.wantLiked {
				t.Errorf("cached liked = %v, want %v", got, tt.wantLiked)
			}
		})
	}
}

func TestLikeToggleRequiresID(t *testing.T) {
	fa := &fakeLikeAPI{}
	l := NewLikes(fa, newFakeCache(), nil)
	if _, err := l.Toggle(context.Background(), core.Track{Title: "x"}); err == nil {
		t.Error("Toggle() without id should fail")
	}
	if len(fa.likes)+len(fa.unlikes) != 0 {
		t.Error("API called for track without id")
	}
}

func TestLikesSync(t *testing.T) {
	cache := newFakeCache("stale")
	l := NewLikes(&fakeLikeAPI{liked: []core.Track{{ID: "a"}, {ID: "b"}}}, cache, nil)

	tracks, err := l.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("Sync() returned %d tracks", len(tracks))
	}
	if cache.liked["stale"] || !cache.liked["a"] || !cache.liked["b"] {
		t.Errorf("cache = %v", cache.liked)
	}
}

type fakePlaylistAPI struct {
	playlists []api.Playlist
	plays     []string
	playErr   error
}

func (f *fakePlaylistAPI) ListPlaylists(context.Context, string) ([]api.Playlist, error) {
	return f.playlists, nil
}

func (f *fakePlaylistAPI) GetPlaylist(_ context.Context, id string) (*api.Playlist, error) {
	for _, p := range f.playlists {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, cerrors.ErrPlaylistNotFound
}

func (f *fakePlaylistAPI) IncrementPlaylistPlayCount(_ context.Context, id string) (int, error) {
	f.plays = append(f.plays, id)
	return len(f.plays), f.playErr
}

type fakePlayer struct {
	core.Player
	track core.Track
	queue []core.Track
	index int
	err   error
}

func (p *fakePlayer) PlayTrack(_ context.Context, track core.Track, queue []core.Track, index int) error {
	p.track, p.queue, p.index = track, queue, index
	return p.err
}

func songs(ids ...string) []core.Track {
	out := make([]core.Track, len(ids))
	for i, id := range ids {
		out[i] = core.Track{ID: id, AudioURL: "/" + id + ".mp3", Duration: time.Duration(i+1) * time.Minute}
	}
	return out
}

func TestPlaylistSummaryDuration(t *testing.T) {
	fa := &fakePlaylistAPI{playlists: []api.Playlist{
		{ID: "p1", Name: "Mix", Songs: songs("a", "b", "c")},
		{ID: "p2", Name: "Empty"},
	}}
	sums, err := NewPlaylists(fa, nil).List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if sums[0].Songs != 3 || sums[0].Duration != 6*time.Minute {
		t.Errorf("summary = %+v, want 3 songs 6m", sums[0])
	}
	if sums[1].Duration != 0 {
		t.Errorf("empty playlist duration = %v", sums[1].Duration)
	}
}

func TestPlaylistPlay(t *testing.T) {
	fa := &fakePlaylistAPI{
		playlists: []api.Playlist{{ID: "p1", Name: "Mix", Songs: songs("a", "b", "c")}},
		playErr:   errors.New("offline"),
	}
	player := &fakePlayer{}
	p, err := NewPlaylists(fa, nil).Play(context.Background(), player, "p1", 1)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if player.track.ID != "b" || player.index != 1 || len(player.queue) != 3 {
		t.Errorf("player got track=%s index=%d queue=%d", player.track.ID, player.index, len(player.queue))
	}
	if p.ID != "p1" {
		t.Errorf("Play() playlist = %s", p.ID)
	}
	if !slices.Equal(fa.plays, []string{"p1"}) {
		t.Errorf("play count posts = %v", fa.plays)
	}
}

func TestPlaylistPlayEmpty(t *testing.T) {
	fa := &fakePlaylistAPI{playlists: []api.Playlist{{ID: "p1", Name: "Empty"}}}
	player := &fakePlayer{}
	if _, err := NewPlaylists(fa, nil).Play(context.Background(), player, "p1", 0); err == nil {
		t.Error("Play() of empty playlist should fail")
	}
	if len(fa.plays) != 0 {
		t.Error("empty playlist should not be counted")
	}
}

type fakePlayCountAPI struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakePlayCountAPI) IncrementPlayCount(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return len(f.ids), nil
}

func TestPlayCounter(t *testing.T) {
	fa := &fakePlayCountAPI{}
	pc := NewPlayCounter(fa, nil)

	pc.Observe(playback.Event{Type: playback.EventStateChanged, Track: &core.Track{ID: "x"}})
	pc.Observe(playback.Event{Type: playback.EventTrackStarted, Track: &core.Track{ID: "a"}})
	pc.Observe(playback.Event{Type: playback.EventTrackStarted})
	pc.Observe(playback.Event{Type: playback.EventTrackStarted, Track: &core.Track{ID: "b"}})
	pc.Close()

	// Observing after Close is ignored.
	pc.Observe(playback.Event{Type: playback.EventTrackStarted, Track: &core.Track{ID: "c"}})

	fa.mu.Lock()
	defer fa.mu.Unlock()
	if !slices.Equal(fa.ids, []string{"a", "b"}) {
		t.Errorf("posted = %v, want [a b]", fa.ids)
	}
}
