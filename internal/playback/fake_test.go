package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/tessro/cadence/internal/audio"
	"github.com/tessro/cadence/internal/core"
)

// fakeElement is an in-memory audio.Element. With autoLoad, SetSource makes
// the resource ready immediately; otherwise tests call loaded or fail.
type fakeElement struct {
	mu             sync.Mutex
	autoLoad       bool
	src            string
	ready          audio.ReadyState
	playing        bool
	pos            time.Duration
	dur            time.Duration
	volume         float64
	playErr        error
	setSourceCalls int
	nextID         int
	handlers       map[audio.EventType]map[int]audio.Handler
}

func newFakeElement(autoLoad bool) *fakeElement {
	return &fakeElement{
		autoLoad: autoLoad,
		handlers: make(map[audio.EventType]map[int]audio.Handler),
	}
}

func (f *fakeElement) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *fakeElement) SetSource(src string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
	f.setSourceCalls++
	f.playing = false
	f.pos = 0
	f.dur = 0
	f.ready = audio.HaveNothing
	if f.autoLoad {
		f.ready = audio.HaveEnoughData
		f.dur = 3 * time.Minute
	}
}

func (f *fakeElement) ReadyState() audio.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ready < audio.HaveMetadata {
		return audio.ErrNotReady
	}
	if f.playErr != nil {
		return f.playErr
	}
	if f.dur > 0 && f.pos >= f.dur {
		f.pos = 0
	}
	f.playing = true
	return nil
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
}

func (f *fakeElement) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.playing
}

func (f *fakeElement) CurrentTime() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeElement) SetCurrentTime(t time.Duration) {
	f.mu.Lock()
	f.pos = t
	f.mu.Unlock()
}

func (f *fakeElement) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur
}

func (f *fakeElement) SetVolume(v float64) {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
}

func (f *fakeElement) On(t audio.EventType, h audio.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers[t] == nil {
		f.handlers[t] = make(map[int]audio.Handler)
	}
	f.nextID++
	id := f.nextID
	f.handlers[t][id] = h
	return func() {
		f.mu.Lock()
		delete(f.handlers[t], id)
		f.mu.Unlock()
	}
}

func (f *fakeElement) Close() error { return nil }

func (f *fakeElement) fire(ev audio.Event) {
	f.mu.Lock()
	var hs []audio.Handler
	for _, h := range f.handlers[ev.Type] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeElement) listenerCount(t audio.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[t])
}

func (f *fakeElement) sourceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setSourceCalls
}

func (f *fakeElement) setPos(d time.Duration) {
	f.mu.Lock()
	f.pos = d
	f.mu.Unlock()
}

// loaded completes a manual load.
func (f *fakeElement) loaded(d time.Duration) {
	f.mu.Lock()
	f.ready = audio.HaveEnoughData
	f.dur = d
	f.mu.Unlock()
	f.fire(audio.Event{Type: audio.EventLoadedMetadata})
}

// end simulates the resource playing out.
func (f *fakeElement) end() {
	f.mu.Lock()
	f.pos = f.dur
	f.playing = false
	f.mu.Unlock()
	f.fire(audio.Event{Type: audio.EventEnded})
}

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) count(t EventType) int {
	n := 0
	for _, typ := range r.types() {
		if typ == t {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func track(id string) core.Track {
	return core.Track{ID: id, Title: "Song " + id, Artist: "Artist", AudioURL: "/uploads/" + id + ".mp3", Duration: 3 * time.Minute}
}

func trackList(ids ...string) []core.Track {
	out := make([]core.Track, len(ids))
	for i, id := range ids {
		out[i] = track(id)
	}
	return out
}

func newTestController(t *testing.T, autoLoad bool, opts Options) (*Controller, *fakeElement, *recorder) {
	t.Helper()
	el := newFakeElement(autoLoad)
	c := New(el, opts)
	rec := &recorder{}
	c.Subscribe(rec.observe)
	t.Cleanup(func() { c.Close() })
	return c, el, rec
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
