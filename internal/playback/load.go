package playback

import (
	"fmt"
	"sync"

	"github.com/tessro/cadence/internal/audio"
	cerrors "github.com/tessro/cadence/internal/errors"
)

// loadWait is a one-shot wait for metadata on the element. Its listeners
// are detached on every exit path.
type loadWait struct {
	done    chan error
	once    sync.Once
	mu      sync.Mutex
	detachs []func()
}

func (w *loadWait) resolve(err error) {
	w.once.Do(func() {
		w.done <- err
	})
}

func (w *loadWait) detachAll() {
	w.mu.Lock()
	ds := w.detachs
	w.detachs = nil
	w.mu.Unlock()

	for _, d := range ds {
		d()
	}
}

// beginWaitLocked registers a fresh wait on the element. Listeners are
// attached before the source is assigned so a fast load is not missed.
func (c *Controller) beginWaitLocked() *loadWait {
	w := &loadWait{done: make(chan error, 1)}
	w.detachs = []func(){
		c.el.On(audio.EventLoadedMetadata, func(audio.Event) {
			w.resolve(nil)
		}),
		c.el.On(audio.EventError, func(ev audio.Event) {
			w.resolve(fmt.Errorf("%w: %v", cerrors.ErrPlayback, ev.Err))
		}),
	}
	c.wait = w
	return w
}

// cancelWaitLocked detaches the pending wait, if any, and wakes its caller
// with ErrSuperseded.
func (c *Controller) cancelWaitLocked() {
	if c.wait == nil {
		return
	}
	w := c.wait
	c.wait = nil
	w.detachAll()
	w.resolve(cerrors.ErrSuperseded)
}

// pendingWait reports whether a load wait is outstanding.
func (c *Controller) pendingWait() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wait != nil
}
