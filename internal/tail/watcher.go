// Package tail turns controller notifications into a stream of discrete
// playback events for line-oriented output.
package tail

import (
	"sync"
	"time"

	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/playback"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventVolumeChange
	EventShuffleChange
	EventRepeatChange
	EventQueueEnd
	EventError
)

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.PlaybackState
	Current   *core.PlaybackState
	Err       error
}

// Watcher diffs successive controller snapshots and emits events.
type Watcher struct {
	events chan Event
	now    func() time.Time

	mu     sync.Mutex
	prev   *core.PlaybackState
	closed bool
}

// NewWatcher creates a watcher whose channel holds up to buffer events.
func NewWatcher(buffer int) *Watcher {
	if buffer <= 0 {
		buffer = 16
	}
	return &Watcher{
		events: make(chan Event, buffer),
		now:    time.Now,
	}
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Attach subscribes the watcher to c, seeding it with c's current state.
func (w *Watcher) Attach(c *playback.Controller) func() {
	st := c.State()
	w.mu.Lock()
	w.prev = &st
	w.mu.Unlock()
	return c.Subscribe(w.Observe)
}

// Observe handles one controller event.
func (w *Watcher) Observe(ev playback.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	curr := ev.State
	events := diffStates(w.prev, &curr, w.now())
	if ev.Type == playback.EventError && ev.Err != nil {
		events = append(events, Event{
			Type:      EventError,
			Timestamp: w.now(),
			Current:   &curr,
			Err:       ev.Err,
		})
	}
	w.prev = &curr

	for _, e := range events {
		w.sendLocked(e)
	}
}

// sendLocked never blocks. When the buffer is full, ordinary events are
// dropped; queue-end and error events evict the oldest buffered event
// instead, since readers stop on them.
func (w *Watcher) sendLocked(e Event) {
	for {
		select {
		case w.events <- e:
			return
		default:
		}
		if e.Type != EventQueueEnd && e.Type != EventError {
			return
		}
		select {
		case <-w.events:
		default:
		}
	}
}

// Close stops the watcher and closes the event channel.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
}

// diffStates compares two states and returns detected events.
func diffStates(prev, curr *core.PlaybackState, now time.Time) []Event {
	if curr == nil {
		return nil
	}

	var events []Event
	add := func(t EventType) {
		events = append(events, Event{Type: t, Timestamp: now, Previous: prev, Current: curr})
	}

	// First snapshot - no previous state
	if prev == nil {
		if curr.HasTrack() {
			add(EventTrackChange)
		}
		return events
	}

	if trackChanged(prev, curr) {
		switch {
		case prev.HasTrack() && wasCompleted(prev):
			add(EventTrackComplete)
		case prev.HasTrack():
			add(EventTrackSkip)
		}
		if curr.HasTrack() {
			add(EventTrackChange)
		}
	}

	if prev.Transport != core.TransportEnded && curr.Transport == core.TransportEnded {
		add(EventQueueEnd)
	}

	// Pause/Resume of the same track; loads are reported as track changes
	if !trackChanged(prev, curr) {
		if prev.IsPlaying && curr.Transport == core.TransportPaused {
			add(EventPause)
		} else if prev.Transport == core.TransportPaused && curr.IsPlaying {
			add(EventResume)
		}
	}

	if prev.Volume != curr.Volume {
		add(EventVolumeChange)
	}
	if prev.Shuffle != curr.Shuffle {
		add(EventShuffleChange)
	}
	if prev.Repeat != curr.Repeat {
		add(EventRepeatChange)
	}

	return events
}

// trackChanged returns true if the track changed.
func trackChanged(prev, curr *core.PlaybackState) bool {
	if prev.Track == nil && curr.Track == nil {
		return false
	}
	if prev.Track == nil || curr.Track == nil {
		return true
	}
	return prev.Track.ID != curr.Track.ID
}

// wasCompleted returns true if the track likely completed naturally.
func wasCompleted(state *core.PlaybackState) bool {
	if state.Transport == core.TransportEnded {
		return true
	}
	if state.Duration == 0 {
		return false
	}
	// Consider completed if progress is >= 95% of duration
	threshold := float64(state.Duration) * 0.95
	return float64(state.Progress) >= threshold
}
