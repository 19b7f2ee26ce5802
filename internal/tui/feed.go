package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/playback"
)

// feed hands controller snapshots to the UI loop. Only the latest snapshot
// is kept, so progress updates never pile up behind a slow render.
type feed struct {
	mu      sync.Mutex
	latest  core.PlaybackState
	started bool
	err     error
	signal  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newFeed() *feed {
	return &feed{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// observe is registered with the controller.
func (f *feed) observe(ev playback.Event) {
	f.mu.Lock()
	f.latest = ev.State
	if ev.Type == playback.EventTrackStarted {
		f.started = true
	}
	if ev.Type == playback.EventError && ev.Err != nil {
		f.err = ev.Err
	}
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *feed) close() {
	f.once.Do(func() { close(f.done) })
}

// wait returns a command that blocks until the next snapshot.
func (f *feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.signal:
		case <-f.done:
			return nil
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		msg := stateMsg{state: f.latest, trackStarted: f.started, err: f.err}
		f.started = false
		f.err = nil
		return msg
	}
}
