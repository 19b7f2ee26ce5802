package playback

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/tessro/cadence/internal/audio"
	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
)

var ctx = context.Background()

func TestPlayTrackNoAudioSource(t *testing.T) {
	c, el, rec := newTestController(t, true, Options{})
	before := c.State()

	err := c.PlayTrack(ctx, core.Track{Title: "x", Artist: "y"}, nil, 0)
	if !errors.Is(err, cerrors.ErrNoAudioSource) {
		t.Fatalf("PlayTrack() error = %v, want ErrNoAudioSource", err)
	}

	after := c.State()
	if after.Transport != before.Transport || after.Track != nil || after.LastError != "" {
		t.Errorf("state changed: before=%+v after=%+v", before, after)
	}
	if el.sourceCalls() != 0 {
		t.Errorf("SetSource called %d times", el.sourceCalls())
	}
	if got := rec.types(); !slices.Equal(got, []EventType{EventError}) {
		t.Errorf("events = %v, want [error]", got)
	}
}

func TestPlayTrackNoAudioSourceKeepsPlayingTrack(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{})
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}

	err := c.PlayTrack(ctx, core.Track{ID: "z", Title: "x"}, trackList("p", "q"), 1)
	if !errors.Is(err, cerrors.ErrNoAudioSource) {
		t.Fatalf("PlayTrack() error = %v", err)
	}
	s := c.State()
	if s.Transport != core.TransportPlaying || s.Track.ID != "a" || !s.Queue.IsEmpty() {
		t.Errorf("state mutated by rejected play: %+v", s)
	}
}

func TestPlayTrackStartsPlayback(t *testing.T) {
	c, el, rec := newTestController(t, true, Options{MediaBase: "http://media.local"})

	if err := c.PlayTrack(ctx, track("b"), trackList("a", "b", "c"), 1); err != nil {
		t.Fatalf("PlayTrack() error = %v", err)
	}

	s := c.State()
	if s.Transport != core.TransportPlaying || !s.IsPlaying {
		t.Errorf("Transport = %v, IsPlaying = %v", s.Transport, s.IsPlaying)
	}
	if s.Track == nil || s.Track.ID != "b" {
		t.Errorf("Track = %+v", s.Track)
	}
	if s.Queue.CurrentIndex != 1 || s.Queue.Len() != 3 {
		t.Errorf("Queue = %d/%d", s.Queue.CurrentIndex, s.Queue.Len())
	}
	if el.Source() != "http://media.local/uploads/b.mp3" {
		t.Errorf("Source = %q", el.Source())
	}

	want := []EventType{EventStateChanged, EventStateChanged, EventTrackStarted}
	if got := rec.types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if rec.events[0].State.Transport != core.TransportLoading {
		t.Errorf("first event transport = %v, want loading", rec.events[0].State.Transport)
	}
	if el.listenerCount(audio.EventLoadedMetadata) != 0 {
		t.Error("load listeners left attached")
	}
}

func TestPlayTrackSameSourceSkipsLoad(t *testing.T) {
	c, el, rec := newTestController(t, true, Options{})

	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}
	rec.reset()
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}

	if el.sourceCalls() != 1 {
		t.Errorf("SetSource calls = %d, want 1", el.sourceCalls())
	}
	for _, ev := range rec.events {
		if ev.State.Transport == core.TransportLoading {
			t.Error("second play re-entered Loading")
		}
	}
	if rec.count(EventTrackStarted) != 0 {
		t.Error("second play emitted TrackStarted")
	}
	if c.State().Transport != core.TransportPlaying {
		t.Errorf("Transport = %v", c.State().Transport)
	}
}

func TestPlayTrackSupersedesPendingLoad(t *testing.T) {
	c, el, rec := newTestController(t, false, Options{LoadTimeout: 5 * time.Second})

	first := make(chan error, 1)
	go func() { first <- c.PlayTrack(ctx, track("a"), nil, 0) }()
	eventually(t, func() bool { return el.sourceCalls() == 1 }, "first load")

	second := make(chan error, 1)
	go func() { second <- c.PlayTrack(ctx, track("b"), nil, 0) }()

	select {
	case err := <-first:
		if !errors.Is(err, cerrors.ErrSuperseded) {
			t.Fatalf("first PlayTrack() error = %v, want ErrSuperseded", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("superseded PlayTrack did not return")
	}

	eventually(t, func() bool { return el.sourceCalls() == 2 }, "second load")
	if n := el.listenerCount(audio.EventLoadedMetadata); n != 1 {
		t.Errorf("loadedmetadata listeners = %d, want 1", n)
	}

	el.loaded(2 * time.Minute)
	if err := <-second; err != nil {
		t.Fatalf("second PlayTrack() error = %v", err)
	}

	s := c.State()
	if s.Track.ID != "b" || s.Transport != core.TransportPlaying {
		t.Errorf("state = %v %+v", s.Transport, s.Track)
	}
	if rec.count(EventTrackStarted) != 1 {
		t.Errorf("TrackStarted count = %d, want 1", rec.count(EventTrackStarted))
	}
	if c.pendingWait() || el.listenerCount(audio.EventLoadedMetadata) != 0 {
		t.Error("wait not cleaned up")
	}
}

func TestPlayTrackLoadTimeout(t *testing.T) {
	c, el, rec := newTestController(t, false, Options{LoadTimeout: 20 * time.Millisecond})

	err := c.PlayTrack(ctx, track("a"), nil, 0)
	if !errors.Is(err, cerrors.ErrLoadTimeout) {
		t.Fatalf("PlayTrack() error = %v, want ErrLoadTimeout", err)
	}

	s := c.State()
	if s.Transport != core.TransportIdle || s.IsPlaying {
		t.Errorf("Transport = %v, want idle", s.Transport)
	}
	if s.LastError == "" {
		t.Error("LastError not set")
	}
	if el.listenerCount(audio.EventLoadedMetadata) != 0 || c.pendingWait() {
		t.Error("timed-out wait left listeners attached")
	}
	if rec.count(EventError) != 1 {
		t.Errorf("error events = %d, want 1", rec.count(EventError))
	}
}

func TestRetryAfterTimeoutAnnouncesStart(t *testing.T) {
	c, el, rec := newTestController(t, false, Options{LoadTimeout: 20 * time.Millisecond})

	if err := c.PlayTrack(ctx, track("a"), nil, 0); !errors.Is(err, cerrors.ErrLoadTimeout) {
		t.Fatalf("PlayTrack() error = %v, want ErrLoadTimeout", err)
	}

	// The element finishes buffering after the wait gave up.
	el.loaded(time.Minute)
	rec.reset()

	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatalf("retry PlayTrack() error = %v", err)
	}
	if s := c.State(); s.Transport != core.TransportPlaying {
		t.Errorf("Transport = %v, want playing", s.Transport)
	}
	if got := rec.count(EventTrackStarted); got != 1 {
		t.Errorf("TrackStarted count = %d, want 1", got)
	}

	// Replaying while it plays is a resume.
	rec.reset()
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}
	if got := rec.count(EventTrackStarted); got != 0 {
		t.Errorf("TrackStarted on resume = %d, want 0", got)
	}
}

func TestPlayTrackMediaError(t *testing.T) {
	c, el, _ := newTestController(t, false, Options{})

	done := make(chan error, 1)
	go func() { done <- c.PlayTrack(ctx, track("a"), nil, 0) }()
	eventually(t, func() bool { return el.sourceCalls() == 1 }, "load")
	eventually(t, func() bool { return el.listenerCount(audio.EventLoadedMetadata) == 1 }, "wait listeners")

	el.fire(audio.Event{Type: audio.EventError, Err: errors.New("decode failed")})

	err := <-done
	if !errors.Is(err, cerrors.ErrPlayback) {
		t.Fatalf("PlayTrack() error = %v, want ErrPlayback", err)
	}
	if s := c.State(); s.Transport != core.TransportIdle {
		t.Errorf("Transport = %v, want idle", s.Transport)
	}
}

func TestPlayTrackContextCancel(t *testing.T) {
	c, _, _ := newTestController(t, false, Options{})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	if err := c.PlayTrack(cctx, track("a"), nil, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("PlayTrack() error = %v", err)
	}
	if s := c.State(); s.Transport != core.TransportIdle {
		t.Errorf("Transport = %v, want idle", s.Transport)
	}
}

func TestTogglePlayPause(t *testing.T) {
	c, el, rec := newTestController(t, true, Options{})

	c.TogglePlayPause()
	if len(rec.types()) != 0 || c.State().Transport != core.TransportIdle {
		t.Fatal("TogglePlayPause on idle should be a no-op")
	}

	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}
	c.TogglePlayPause()
	if s := c.State(); s.Transport != core.TransportPaused || !el.Paused() {
		t.Errorf("after pause: %v paused=%v", s.Transport, el.Paused())
	}
	c.TogglePlayPause()
	if s := c.State(); s.Transport != core.TransportPlaying || el.Paused() {
		t.Errorf("after resume: %v paused=%v", s.Transport, el.Paused())
	}
}

func TestSeekClamps(t *testing.T) {
	c, el, _ := newTestController(t, true, Options{})
	c.Seek(30)
	if el.CurrentTime() != 0 {
		t.Error("Seek on idle should be ignored")
	}

	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		seek float64
		want time.Duration
	}{
		{30, 30 * time.Second},
		{-5, 0},
		{10_000, 3 * time.Minute},
		{1.5, 1500 * time.Millisecond},
		{1e300, 3 * time.Minute},
	}
	for _, tt := range tests {
		c.Seek(tt.seek)
		if got := el.CurrentTime(); got != tt.want {
			t.Errorf("Seek(%v) position = %v, want %v", tt.seek, got, tt.want)
		}
	}

	c.Seek(42)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		c.Seek(v)
		if got := el.CurrentTime(); got != 42*time.Second {
			t.Errorf("Seek(%v) moved position to %v", v, got)
		}
	}
}

func TestSkipForwardBack(t *testing.T) {
	c, el, _ := newTestController(t, true, Options{})
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}

	el.setPos(5 * time.Second)
	c.SkipBack()
	if el.CurrentTime() != 0 {
		t.Errorf("SkipBack from 5s = %v, want 0", el.CurrentTime())
	}
	c.SkipForward()
	if el.CurrentTime() != 10*time.Second {
		t.Errorf("SkipForward = %v, want 10s", el.CurrentTime())
	}
	el.setPos(2*time.Minute + 55*time.Second)
	c.SkipForward()
	if el.CurrentTime() != 3*time.Minute {
		t.Errorf("SkipForward near end = %v, want 3m", el.CurrentTime())
	}
}

func TestSetVolumeClamps(t *testing.T) {
	c, el, _ := newTestController(t, true, Options{Volume: 0.7})

	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{2, 1},
		{0.3, 0.3},
	}
	for _, tt := range tests {
		c.SetVolume(tt.in)
		if got := c.State().Volume; got != tt.want {
			t.Errorf("SetVolume(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if el.volume != tt.want {
			t.Errorf("element volume = %v, want %v", el.volume, tt.want)
		}
	}
}

func TestEmptyQueueNavigationIsNoop(t *testing.T) {
	c, el, rec := newTestController(t, true, Options{})
	before := c.State()

	if err := c.PlayNext(ctx); err != nil {
		t.Errorf("PlayNext() error = %v", err)
	}
	if err := c.PlayPrevious(ctx); err != nil {
		t.Errorf("PlayPrevious() error = %v", err)
	}

	if len(rec.types()) != 0 || el.sourceCalls() != 0 {
		t.Errorf("empty queue navigation produced events %v", rec.types())
	}
	if after := c.State(); after.Transport != before.Transport || after.Queue.CurrentIndex != 0 {
		t.Errorf("state changed: %+v", after)
	}
}

func TestPlayNextWraps(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{})
	if err := c.PlayTrack(ctx, track("a"), trackList("a", "b", "c"), 0); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"b", "c", "a"} {
		if err := c.PlayNext(ctx); err != nil {
			t.Fatal(err)
		}
		if got := c.State().Track.ID; got != want {
			t.Errorf("PlayNext() track = %s, want %s", got, want)
		}
	}
}

func TestPlayPreviousRestartThreshold(t *testing.T) {
	tests := []struct {
		name      string
		elapsed   time.Duration
		wantIndex int
		wantPos   time.Duration
	}{
		{"at threshold moves pointer", 3 * time.Second, 0, 0},
		{"short play moves pointer", time.Second, 0, 0},
		{"past threshold restarts", 3*time.Second + time.Millisecond, 1, 0},
		{"long play restarts", 90 * time.Second, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, el, _ := newTestController(t, true, Options{})
			if err := c.PlayTrack(ctx, track("b"), trackList("a", "b", "c"), 1); err != nil {
				t.Fatal(err)
			}
			calls := el.sourceCalls()
			el.setPos(tt.elapsed)

			if err := c.PlayPrevious(ctx); err != nil {
				t.Fatal(err)
			}

			s := c.State()
			if s.Queue.CurrentIndex != tt.wantIndex {
				t.Errorf("CurrentIndex = %d, want %d", s.Queue.CurrentIndex, tt.wantIndex)
			}
			if el.CurrentTime() != tt.wantPos {
				t.Errorf("position = %v, want %v", el.CurrentTime(), tt.wantPos)
			}
			restarted := el.sourceCalls() == calls
			if restarted != (tt.wantIndex == 1) {
				t.Errorf("restarted = %v", restarted)
			}
		})
	}
}

func TestShuffleSingleEntry(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{Shuffle: true, Rand: func(int) int {
		panic("random source used for single-entry queue")
	}})
	if err := c.PlayTrack(ctx, track("a"), trackList("a"), 0); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.PlayNext(ctx); err != nil {
			t.Errorf("PlayNext() error = %v", err)
		}
		if err := c.PlayPrevious(ctx); err != nil {
			t.Errorf("PlayPrevious() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("navigation on single-entry shuffled queue hung")
	}

	s := c.State()
	if s.Queue.CurrentIndex != 0 || s.Track.ID != "a" {
		t.Errorf("state = %d %s", s.Queue.CurrentIndex, s.Track.ID)
	}
}

func TestShuffleNextPicksOtherEntry(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{Shuffle: true, Rand: func(n int) int { return n - 1 }})
	if err := c.PlayTrack(ctx, track("a"), trackList("a", "b", "c", "d"), 3); err != nil {
		t.Fatal(err)
	}
	if err := c.PlayNext(ctx); err != nil {
		t.Fatal(err)
	}
	if got := c.State().Queue.CurrentIndex; got != 2 {
		t.Errorf("CurrentIndex = %d, want 2", got)
	}
}

func TestNaturalEndRepeatPolicy(t *testing.T) {
	tests := []struct {
		name          string
		repeat        core.RepeatMode
		start         int
		wantIndex     int
		wantTransport core.Transport
		wantLoads     int
	}{
		{"off advances", core.RepeatOff, 0, 1, core.TransportPlaying, 2},
		{"off stops at last", core.RepeatOff, 2, 2, core.TransportEnded, 1},
		{"all wraps", core.RepeatAll, 2, 0, core.TransportPlaying, 2},
		{"one restarts", core.RepeatOne, 1, 1, core.TransportPlaying, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, el, _ := newTestController(t, true, Options{Repeat: tt.repeat})
			q := trackList("a", "b", "c")
			if err := c.PlayTrack(ctx, q[tt.start], q, tt.start); err != nil {
				t.Fatal(err)
			}

			el.end()

			s := c.State()
			if s.Queue.CurrentIndex != tt.wantIndex {
				t.Errorf("CurrentIndex = %d, want %d", s.Queue.CurrentIndex, tt.wantIndex)
			}
			if s.Transport != tt.wantTransport {
				t.Errorf("Transport = %v, want %v", s.Transport, tt.wantTransport)
			}
			if el.sourceCalls() != tt.wantLoads {
				t.Errorf("loads = %d, want %d", el.sourceCalls(), tt.wantLoads)
			}
			if tt.repeat == core.RepeatOne && el.CurrentTime() != 0 {
				t.Errorf("repeat-one position = %v, want 0", el.CurrentTime())
			}
			if tt.wantTransport == core.TransportEnded && s.IsPlaying {
				t.Error("IsPlaying after end of queue")
			}
		})
	}
}

func TestNaturalEndStandaloneTrack(t *testing.T) {
	c, el, _ := newTestController(t, true, Options{Repeat: core.RepeatAll})
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}
	el.end()
	if s := c.State(); s.Transport != core.TransportEnded {
		t.Errorf("Transport = %v, want ended", s.Transport)
	}

	c.TogglePlayPause()
	if s := c.State(); s.Transport != core.TransportPlaying {
		t.Errorf("Transport after replay = %v", s.Transport)
	}
}

func TestMediaErrorWhilePlaying(t *testing.T) {
	c, el, rec := newTestController(t, true, Options{})
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}
	el.fire(audio.Event{Type: audio.EventError, Err: errors.New("network lost")})

	s := c.State()
	if s.Transport != core.TransportIdle {
		t.Errorf("Transport = %v, want idle", s.Transport)
	}
	if rec.count(EventError) != 1 {
		t.Errorf("error events = %d", rec.count(EventError))
	}
}

func TestQueueManipulation(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{})
	if err := c.PlayTrack(ctx, track("c"), trackList("a", "b", "c", "d"), 2); err != nil {
		t.Fatal(err)
	}

	c.RemoveFromQueue(0)
	s := c.State()
	if s.Queue.CurrentIndex != 1 || s.Queue.Current().ID != "c" {
		t.Errorf("after removing earlier entry: index %d current %v", s.Queue.CurrentIndex, s.Queue.Current())
	}

	c.RemoveFromQueue(99)
	c.AddToQueue(track("e"))
	s = c.State()
	if got := s.Queue.Len(); got != 4 {
		t.Errorf("Len = %d, want 4", got)
	}

	if err := c.PlayQueueIndex(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if got := c.State().Track.ID; got != "e" {
		t.Errorf("PlayQueueIndex track = %s, want e", got)
	}
	if err := c.PlayQueueIndex(ctx, 9); !errors.Is(err, ErrQueueIndex) {
		t.Errorf("PlayQueueIndex(9) error = %v", err)
	}

	c.ClearQueue()
	s = c.State()
	if !s.Queue.IsEmpty() || s.Queue.CurrentIndex != 0 {
		t.Errorf("ClearQueue left %+v", s.Queue)
	}
	if s.Track == nil || s.Track.ID != "e" {
		t.Error("ClearQueue should keep the loaded track")
	}
}

func TestToggleShuffleAndRepeat(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{})
	c.ToggleShuffle()
	if !c.State().Shuffle {
		t.Error("shuffle not enabled")
	}
	want := []core.RepeatMode{core.RepeatAll, core.RepeatOne, core.RepeatOff}
	for _, w := range want {
		c.ToggleRepeat()
		if got := c.State().Repeat; got != w {
			t.Errorf("Repeat = %v, want %v", got, w)
		}
	}
}

func TestLikes(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{})

	if c.ToggleLike(nil) {
		t.Error("ToggleLike(nil) with no track should be false")
	}
	if err := c.PlayTrack(ctx, track("a"), nil, 0); err != nil {
		t.Fatal(err)
	}

	if !c.ToggleLike(nil) || !c.IsLiked(nil) {
		t.Error("current track not liked after toggle")
	}
	if !c.State().Track.IsLiked {
		t.Error("current track IsLiked flag not updated")
	}

	other := track("b")
	c.ToggleLike(&other)
	if s := c.State(); !s.IsLiked("b") {
		t.Error("b not in liked set")
	}

	c.Reconcile("a", false)
	if c.IsLiked(nil) {
		t.Error("server answer did not win")
	}

	c.ReplaceLiked([]string{"x", "y"})
	s := c.State()
	if s.IsLiked("b") || !s.IsLiked("x") || !s.IsLiked("y") {
		t.Errorf("ReplaceLiked set = %v", s.LikedTrackID)
	}
}

func TestObserversReenterInOrder(t *testing.T) {
	c, _, rec := newTestController(t, true, Options{})

	var once bool
	c.Subscribe(func(ev Event) {
		if ev.Type == EventTrackStarted && !once {
			once = true
			c.SetVolume(0.2)
		}
	})

	done := make(chan error, 1)
	go func() { done <- c.PlayTrack(ctx, track("a"), nil, 0) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("re-entrant observer deadlocked")
	}

	want := []EventType{EventStateChanged, EventStateChanged, EventTrackStarted, EventStateChanged}
	if got := rec.types(); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if v := rec.events[3].State.Volume; v != 0.2 {
		t.Errorf("last event volume = %v, want 0.2", v)
	}
}

func TestUnsubscribe(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{})
	n := 0
	unsub := c.Subscribe(func(Event) { n++ })
	c.ToggleShuffle()
	unsub()
	c.ToggleShuffle()
	if n != 1 {
		t.Errorf("observer called %d times, want 1", n)
	}
}

func TestQueueIndexInvariantUnderCommands(t *testing.T) {
	c, _, _ := newTestController(t, true, Options{Rand: func(n int) int { return n / 2 }})
	if err := c.PlayTrack(ctx, track("a"), trackList("a", "b", "c"), 0); err != nil {
		t.Fatal(err)
	}

	ops := []func(){
		func() { c.AddToQueue(track("x")) },
		func() { c.RemoveFromQueue(0) },
		func() { _ = c.PlayNext(ctx) },
		func() { _ = c.PlayPrevious(ctx) },
		func() { c.ToggleShuffle() },
		func() {
			s := c.State()
			c.RemoveFromQueue(s.Queue.Len() - 1)
		},
	}
	for step := 0; step < 300; step++ {
		ops[(step*7+step/3)%len(ops)]()
		q := c.State().Queue
		if q.Len() > 0 && (q.CurrentIndex < 0 || q.CurrentIndex >= q.Len()) {
			t.Fatalf("step %d: index %d outside [0,%d)", step, q.CurrentIndex, q.Len())
		}
	}
}
