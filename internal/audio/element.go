// Package audio models the single audio output a playback session drives.
package audio

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// ReadyState mirrors how much of the resource is available.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// EventType names an element event.
type EventType string

const (
	EventLoadedMetadata EventType = "loadedmetadata"
	EventTimeUpdate     EventType = "timeupdate"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
)

// Event is delivered to handlers registered with On.
type Event struct {
	Type EventType
	Time time.Duration
	Err  error
}

// Handler receives element events. Handlers run on the element's own
// goroutines, never synchronously inside an Element method, so they may
// take locks held around Element calls.
type Handler func(Event)

// ErrNotReady is returned by Play before metadata has loaded.
var ErrNotReady = errors.New("audio: source not ready")

// Element is a single audio output.
type Element interface {
	Source() string
	// SetSource assigns a new resource and starts loading it. Completion is
	// reported through EventLoadedMetadata or EventError.
	SetSource(src string)
	ReadyState() ReadyState

	Play() error
	Pause()
	Paused() bool

	CurrentTime() time.Duration
	SetCurrentTime(t time.Duration)
	Duration() time.Duration
	SetVolume(v float64)

	// On registers h for t and returns a func that detaches it.
	On(t EventType, h Handler) (detach func())
	Close() error
}

// listeners is a detachable handler registry.
type listeners struct {
	mu     sync.Mutex
	nextID uint64
	byType map[EventType]map[uint64]Handler
}

func (l *listeners) on(t EventType, h Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.byType == nil {
		l.byType = make(map[EventType]map[uint64]Handler)
	}
	if l.byType[t] == nil {
		l.byType[t] = make(map[uint64]Handler)
	}
	l.nextID++
	id := l.nextID
	l.byType[t][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.byType[t], id)
			l.mu.Unlock()
		})
	}
}

// emit calls handlers outside the lock so they may detach themselves.
func (l *listeners) emit(ev Event) {
	l.mu.Lock()
	hs := make([]Handler, 0, len(l.byType[ev.Type]))
	ids := make([]uint64, 0, len(l.byType[ev.Type]))
	for id := range l.byType[ev.Type] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		hs = append(hs, l.byType[ev.Type][id])
	}
	l.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func (l *listeners) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byType[t])
}

func (l *listeners) reset() {
	l.mu.Lock()
	l.byType = nil
	l.mu.Unlock()
}
