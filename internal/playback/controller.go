// Package playback implements the session controller: the single owner of
// the audio element, the play queue and the transport state layered on top.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/audio"
	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
)

// ErrQueueIndex is returned by PlayQueueIndex for an index outside the queue.
var ErrQueueIndex = errors.New("queue index out of range")

// Options configures a Controller. Zero values take defaults.
type Options struct {
	MediaBase        string
	LoadTimeout      time.Duration
	SkipStep         time.Duration
	RestartThreshold time.Duration
	Volume           float64
	Shuffle          bool
	Repeat           core.RepeatMode
	Rand             core.Intn
	Logger           *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 10 * time.Second
	}
	if o.SkipStep <= 0 {
		o.SkipStep = 10 * time.Second
	}
	if o.RestartThreshold <= 0 {
		o.RestartThreshold = 3 * time.Second
	}
	if o.Rand == nil {
		o.Rand = rand.Intn
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Controller owns one audio.Element and all playback state. It is safe for
// concurrent use.
type Controller struct {
	el     audio.Element
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	transport  core.Transport
	track      *core.Track
	queue      core.Queue
	volume     float64
	shuffle    bool
	repeat     core.RepeatMode
	liked      map[string]bool
	lastErr    string
	startedSrc string // source that last reached Playing through a load
	gen        uint64
	wait       *loadWait
	closed     bool

	notify notifier
	detach []func()
}

var _ core.Player = (*Controller)(nil)

// New creates an idle controller driving el.
func New(el audio.Element, opts Options) *Controller {
	opts.applyDefaults()

	c := &Controller{
		el:      el,
		opts:    opts,
		logger:  opts.Logger.Named("playback"),
		volume:  clamp01(opts.Volume),
		shuffle: opts.Shuffle,
		repeat:  opts.Repeat,
		liked:   make(map[string]bool),
	}
	el.SetVolume(c.volume)

	c.detach = []func(){
		el.On(audio.EventTimeUpdate, c.onTimeUpdate),
		el.On(audio.EventEnded, c.onEnded),
		el.On(audio.EventError, c.onMediaError),
	}
	return c
}

// Subscribe registers obs and returns a func that removes it.
func (c *Controller) Subscribe(obs Observer) func() {
	return c.notify.subscribe(obs)
}

// State returns a snapshot of the current playback state.
func (c *Controller) State() core.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() core.PlaybackState {
	s := core.PlaybackState{
		Transport: c.transport,
		IsPlaying: c.transport == core.TransportPlaying,
		Progress:  c.el.CurrentTime(),
		Duration:  c.el.Duration(),
		Volume:    c.volume,
		Shuffle:   c.shuffle,
		Repeat:    c.repeat,
		Queue:     c.queue.Clone(),
		LastError: c.lastErr,
	}
	if c.track != nil {
		t := *c.track
		s.Track = &t
		if s.Duration == 0 {
			s.Duration = t.Duration
		}
	}
	if c.transport == core.TransportIdle || c.transport == core.TransportLoading {
		s.Progress = 0
	}
	s.LikedTrackID = make(map[string]bool, len(c.liked))
	for id := range c.liked {
		s.LikedTrackID[id] = true
	}
	return s
}

// emitLocked queues an event carrying the current snapshot. The caller must
// call notify.drain after releasing c.mu.
func (c *Controller) emitLocked(typ EventType, track *core.Track, err error) {
	ev := Event{Type: typ, State: c.snapshotLocked(), Err: err}
	if track != nil {
		t := *track
		ev.Track = &t
	}
	c.notify.enqueue(ev)
}

// commit releases c.mu and delivers queued events.
func (c *Controller) commit() {
	c.mu.Unlock()
	c.notify.drain()
}

// PlayTrack makes track current and plays it. A non-nil queue replaces the
// play queue with index as the current position.
func (c *Controller) PlayTrack(ctx context.Context, track core.Track, queue []core.Track, index int) error {
	req := playRequest{track: track, index: index, setIndex: queue != nil}
	if queue != nil {
		req.queue = make([]core.Track, len(queue))
		copy(req.queue, queue)
		req.replaceQueue = true
	}
	return c.play(ctx, req)
}

type playRequest struct {
	track        core.Track
	queue        []core.Track
	replaceQueue bool
	index        int
	setIndex     bool
}

func (c *Controller) play(ctx context.Context, req playRequest) error {
	src, err := req.track.ResolveSource(c.opts.MediaBase)
	if err != nil {
		err = fmt.Errorf("play %q: %w", req.track.Title, err)
		c.logger.Warn("track has no audio source", zap.String("track", req.track.ID))
		c.mu.Lock()
		c.emitLocked(EventError, &req.track, err)
		c.commit()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("playback: controller closed")
	}
	if req.replaceQueue {
		c.queue = core.Queue{Tracks: req.queue}
	}
	if req.setIndex {
		if req.index < 0 || req.index >= c.queue.Len() {
			if !req.replaceQueue {
				c.mu.Unlock()
				return nil
			}
			req.index = 0
		}
		c.queue.CurrentIndex = req.index
	}

	c.gen++
	gen := c.gen
	c.cancelWaitLocked()

	track := req.track
	c.track = &track
	c.lastErr = ""

	// Resuming the source that is already out of the speakers is not a new play.
	resumed := c.startedSrc == src &&
		(c.transport == core.TransportPlaying || c.transport == core.TransportPaused)

	newSource := c.el.Source() != src
	if !newSource && c.el.ReadyState() < audio.HaveMetadata && c.transport != core.TransportLoading {
		// A previous load of this source failed; assign it again.
		newSource = true
	}

	var w *loadWait
	if newSource || c.el.ReadyState() < audio.HaveCurrentData {
		w = c.beginWaitLocked()
		if newSource {
			c.logger.Debug("loading source", zap.String("track", track.ID), zap.String("src", src))
			c.el.SetSource(src)
		}
		c.transport = core.TransportLoading
		if c.el.ReadyState() >= audio.HaveCurrentData {
			w.resolve(nil)
		}
		c.emitLocked(EventStateChanged, nil, nil)
	}
	c.commit()

	if w != nil {
		if err := c.await(ctx, w); err != nil {
			return c.failLoad(gen, w, err)
		}
	}
	return c.start(gen, src, !resumed)
}

// await blocks until w resolves, the load timeout elapses or ctx is done.
func (c *Controller) await(ctx context.Context, w *loadWait) error {
	timer := time.NewTimer(c.opts.LoadTimeout)
	defer timer.Stop()

	select {
	case err := <-w.done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w after %s", cerrors.ErrLoadTimeout, c.opts.LoadTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) failLoad(gen uint64, w *loadWait, err error) error {
	c.mu.Lock()
	if gen != c.gen || errors.Is(err, cerrors.ErrSuperseded) {
		c.mu.Unlock()
		w.detachAll()
		return cerrors.ErrSuperseded
	}
	c.cancelWaitLocked()
	c.el.Pause()
	c.transport = core.TransportIdle
	c.startedSrc = ""
	c.lastErr = err.Error()
	c.logger.Warn("load failed", zap.Error(err))
	c.emitLocked(EventStateChanged, nil, nil)
	c.emitLocked(EventError, c.track, err)
	c.commit()
	return err
}

func (c *Controller) start(gen uint64, src string, announce bool) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return cerrors.ErrSuperseded
	}
	c.cancelWaitLocked()

	c.el.SetVolume(c.volume)
	if err := c.el.Play(); err != nil {
		err = fmt.Errorf("%w: %v", cerrors.ErrPlayback, err)
		c.transport = core.TransportIdle
		c.startedSrc = ""
		c.lastErr = err.Error()
		c.logger.Warn("play failed", zap.Error(err))
		c.emitLocked(EventStateChanged, nil, nil)
		c.emitLocked(EventError, c.track, err)
		c.commit()
		return err
	}

	c.transport = core.TransportPlaying
	c.startedSrc = src
	c.emitLocked(EventStateChanged, nil, nil)
	if announce {
		c.logger.Info("track started", zap.String("track", c.track.ID), zap.String("title", c.track.Title))
		c.emitLocked(EventTrackStarted, c.track, nil)
	}
	c.commit()
	return nil
}

// TogglePlayPause flips Playing and Paused. Ended restarts the track.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	switch c.transport {
	case core.TransportPlaying:
		c.el.Pause()
		c.transport = core.TransportPaused
	case core.TransportPaused, core.TransportEnded:
		if err := c.el.Play(); err != nil {
			err = fmt.Errorf("%w: %v", cerrors.ErrPlayback, err)
			c.lastErr = err.Error()
			c.logger.Warn("resume failed", zap.Error(err))
			c.emitLocked(EventError, c.track, err)
			c.commit()
			return
		}
		c.transport = core.TransportPlaying
	default:
		c.mu.Unlock()
		return
	}
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// Seek moves to seconds, clamped to the track. NaN and infinities are ignored.
func (c *Controller) Seek(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	c.mu.Lock()
	if !c.seekableLocked() {
		c.mu.Unlock()
		return
	}
	// Clamp before converting so huge values cannot overflow Duration.
	seconds = math.Max(0, math.Min(seconds, c.el.Duration().Seconds()))
	c.seekLocked(time.Duration(seconds * float64(time.Second)))
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// SkipForward seeks ahead by the skip step.
func (c *Controller) SkipForward() {
	c.skip(c.opts.SkipStep)
}

// SkipBack seeks back by the skip step.
func (c *Controller) SkipBack() {
	c.skip(-c.opts.SkipStep)
}

func (c *Controller) skip(d time.Duration) {
	c.mu.Lock()
	if !c.seekableLocked() {
		c.mu.Unlock()
		return
	}
	c.seekLocked(c.el.CurrentTime() + d)
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

func (c *Controller) seekableLocked() bool {
	switch c.transport {
	case core.TransportPaused, core.TransportPlaying, core.TransportEnded:
		return true
	}
	return false
}

func (c *Controller) seekLocked(t time.Duration) {
	dur := c.el.Duration()
	if t < 0 {
		t = 0
	}
	if t > dur {
		t = dur
	}
	c.el.SetCurrentTime(t)
	if c.transport == core.TransportEnded && t < dur {
		c.transport = core.TransportPaused
	}
}

// PlayNext advances the queue. It is a no-op on an empty queue.
func (c *Controller) PlayNext(ctx context.Context) error {
	c.mu.Lock()
	if c.queue.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	i := c.queue.NextIndex(c.shuffle, c.opts.Rand)
	t := c.queue.Tracks[i]
	c.mu.Unlock()

	return c.play(ctx, playRequest{track: t, index: i, setIndex: true})
}

// PlayPrevious restarts the current track once past the restart threshold,
// otherwise moves the queue pointer back. No-op on an empty queue.
func (c *Controller) PlayPrevious(ctx context.Context) error {
	c.mu.Lock()
	if c.queue.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	if c.el.CurrentTime() > c.opts.RestartThreshold && c.seekableLocked() {
		c.seekLocked(0)
		c.emitLocked(EventStateChanged, nil, nil)
		c.commit()
		return nil
	}
	i := c.queue.PrevIndex(c.shuffle, c.opts.Rand)
	t := c.queue.Tracks[i]
	c.mu.Unlock()

	return c.play(ctx, playRequest{track: t, index: i, setIndex: true})
}

// PlayQueueIndex jumps to queue entry i.
func (c *Controller) PlayQueueIndex(ctx context.Context, i int) error {
	c.mu.Lock()
	if i < 0 || i >= c.queue.Len() {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrQueueIndex, i)
	}
	t := c.queue.Tracks[i]
	c.mu.Unlock()

	return c.play(ctx, playRequest{track: t, index: i, setIndex: true})
}

// ToggleShuffle flips shuffle.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	c.shuffle = !c.shuffle
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// SetShuffle sets shuffle.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	c.shuffle = on
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// ToggleRepeat cycles Off, All, One.
func (c *Controller) ToggleRepeat() {
	c.mu.Lock()
	c.repeat = c.repeat.Next()
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// SetRepeat sets the repeat mode.
func (c *Controller) SetRepeat(r core.RepeatMode) {
	c.mu.Lock()
	c.repeat = r
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// SetVolume sets the output volume, clamped to [0, 1].
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = clamp01(v)
	c.el.SetVolume(c.volume)
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// AddToQueue appends track.
func (c *Controller) AddToQueue(track core.Track) {
	c.mu.Lock()
	c.queue.Add(track)
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// RemoveFromQueue removes entry i. The loaded track keeps playing even if
// it was the removed entry.
func (c *Controller) RemoveFromQueue(i int) {
	c.mu.Lock()
	if !c.queue.Remove(i) {
		c.mu.Unlock()
		return
	}
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// ClearQueue empties the queue.
func (c *Controller) ClearQueue() {
	c.mu.Lock()
	c.queue.Clear()
	c.emitLocked(EventStateChanged, nil, nil)
	c.commit()
}

// Close abandons any pending load, detaches from the element and closes it.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	c.cancelWaitLocked()
	for _, d := range c.detach {
		d()
	}
	c.el.Pause()
	c.transport = core.TransportIdle
	c.mu.Unlock()

	return c.el.Close()
}

func (c *Controller) onTimeUpdate(audio.Event) {
	c.mu.Lock()
	if c.transport != core.TransportPlaying {
		c.mu.Unlock()
		return
	}
	c.emitLocked(EventProgress, nil, nil)
	c.commit()
}

// onEnded applies the repeat policy.
func (c *Controller) onEnded(audio.Event) {
	c.mu.Lock()
	if c.transport != core.TransportPlaying {
		c.mu.Unlock()
		return
	}

	advance := false
	switch {
	case c.repeat == core.RepeatOne:
		c.el.SetCurrentTime(0)
		if err := c.el.Play(); err != nil {
			c.transport = core.TransportIdle
			c.lastErr = err.Error()
		}
	case c.queue.IsEmpty():
		c.transport = core.TransportEnded
	case c.repeat == core.RepeatAll:
		advance = true
	case c.queue.IsLast():
		c.transport = core.TransportEnded
	default:
		advance = true
	}

	if !advance {
		c.emitLocked(EventStateChanged, nil, nil)
		c.commit()
		return
	}

	i := c.queue.NextIndex(c.shuffle, c.opts.Rand)
	t := c.queue.Tracks[i]
	c.mu.Unlock()

	if err := c.play(context.Background(), playRequest{track: t, index: i, setIndex: true}); err != nil &&
		!errors.Is(err, cerrors.ErrSuperseded) {
		c.logger.Warn("advance after end failed", zap.Error(err))
	}
}

// onMediaError handles errors outside a load wait.
func (c *Controller) onMediaError(ev audio.Event) {
	c.mu.Lock()
	if c.transport != core.TransportPlaying && c.transport != core.TransportPaused {
		c.mu.Unlock()
		return
	}
	err := fmt.Errorf("%w: %v", cerrors.ErrPlayback, ev.Err)
	c.transport = core.TransportIdle
	c.startedSrc = ""
	c.lastErr = err.Error()
	c.logger.Warn("media error", zap.Error(err))
	c.emitLocked(EventStateChanged, nil, nil)
	c.emitLocked(EventError, c.track, err)
	c.commit()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
