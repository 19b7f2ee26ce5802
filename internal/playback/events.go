package playback

import (
	"slices"
	"sync"

	"github.com/tessro/cadence/internal/core"
)

// EventType identifies a controller notification.
type EventType int

const (
	// EventStateChanged follows every state-affecting command.
	EventStateChanged EventType = iota
	// EventProgress follows element time updates while playing.
	EventProgress
	// EventTrackStarted fires once a newly loaded source begins playing.
	EventTrackStarted
	// EventError reports a failed command or media error.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state"
	case EventProgress:
		return "progress"
	case EventTrackStarted:
		return "track_started"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to observers.
type Event struct {
	Type  EventType
	State core.PlaybackState
	Track *core.Track
	Err   error
}

// Observer receives controller events. Observers may issue controller
// commands; the resulting events are delivered after the current one.
type Observer func(Event)

// notifier delivers events in enqueue order. Whichever goroutine finds the
// queue idle drains it; re-entrant enqueues are picked up by that drain.
type notifier struct {
	mu        sync.Mutex
	pending   []Event
	draining  bool
	nextID    int
	observers map[int]Observer
}

func (n *notifier) subscribe(obs Observer) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.observers == nil {
		n.observers = make(map[int]Observer)
	}
	n.nextID++
	id := n.nextID
	n.observers[id] = obs

	return func() {
		n.mu.Lock()
		delete(n.observers, id)
		n.mu.Unlock()
	}
}

func (n *notifier) enqueue(ev Event) {
	n.mu.Lock()
	n.pending = append(n.pending, ev)
	n.mu.Unlock()
}

func (n *notifier) drain() {
	n.mu.Lock()
	if n.draining {
		n.mu.Unlock()
		return
	}
	n.draining = true

	for len(n.pending) > 0 {
		ev := n.pending[0]
		n.pending = n.pending[1:]
		obs := n.snapshotLocked()
		n.mu.Unlock()

		for _, o := range obs {
			o(ev)
		}

		n.mu.Lock()
	}

	n.draining = false
	n.pending = nil
	n.mu.Unlock()
}

func (n *notifier) snapshotLocked() []Observer {
	ids := make([]int, 0, len(n.observers))
	for id := range n.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	obs := make([]Observer, len(ids))
	for i, id := range ids {
		obs[i] = n.observers[id]
	}
	return obs
}
