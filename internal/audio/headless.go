package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxResourceSize bounds how much of a remote resource is buffered.
const maxResourceSize = 512 << 20

// Headless is an Element with no sound device. It fetches and probes the
// resource, then advances a clock while playing so position, timeupdate
// and ended behave like a real output.
type Headless struct {
	client *http.Client
	token  func() string
	tick   time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	src      string
	ready    ReadyState
	duration time.Duration
	position time.Duration
	volume   float64
	playing  bool
	info     Info
	gen      uint64
	stop     chan struct{}

	ls listeners
}

// HeadlessOption configures a Headless element.
type HeadlessOption func(*Headless)

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) HeadlessOption {
	return func(h *Headless) { h.client = c }
}

// WithToken sets a bearer token source for remote requests.
func WithToken(fn func() string) HeadlessOption {
	return func(h *Headless) { h.token = fn }
}

// WithTick sets the clock interval.
func WithTick(d time.Duration) HeadlessOption {
	return func(h *Headless) {
		if d > 0 {
			h.tick = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) HeadlessOption {
	return func(h *Headless) { h.logger = l }
}

// NewHeadless creates an idle element.
func NewHeadless(opts ...HeadlessOption) *Headless {
	h := &Headless{
		client: &http.Client{Timeout: 60 * time.Second},
		tick:   250 * time.Millisecond,
		logger: zap.NewNop(),
		volume: 1,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Source returns the assigned resource locator.
func (h *Headless) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.src
}

// SetSource resets the element and loads src in the background.
func (h *Headless) SetSource(src string) {
	h.mu.Lock()
	h.stopClockLocked()
	h.src = src
	h.ready = HaveNothing
	h.duration = 0
	h.position = 0
	h.info = Info{}
	h.gen++
	gen := h.gen
	h.mu.Unlock()

	if src == "" {
		return
	}
	go h.load(gen, src)
}

func (h *Headless) load(gen uint64, src string) {
	data, err := h.fetch(src)
	var info Info
	if err == nil {
		info, err = ProbeBytes(data, src)
	}

	h.mu.Lock()
	if gen != h.gen {
		h.mu.Unlock()
		return
	}
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("audio load failed", zap.String("src", src), zap.Error(err))
		h.ls.emit(Event{Type: EventError, Err: err})
		return
	}
	h.info = info
	h.duration = info.Duration
	h.ready = HaveEnoughData
	h.mu.Unlock()

	h.logger.Debug("audio metadata loaded",
		zap.String("src", src),
		zap.String("format", info.Format),
		zap.Duration("duration", info.Duration))
	h.ls.emit(Event{Type: EventLoadedMetadata})
}

func (h *Headless) fetch(src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return h.fetchHTTP(src)
	}

	p := src
	if err == nil && u.Scheme == "file" {
		p = u.Path
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxResourceSize))
}

func (h *Headless) fetchHTTP(src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	if h.token != nil {
		if tok := h.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", src, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, fmt.Errorf("fetch %s: unexpected content type %s", src, ct)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
}

// ReadyState reports load progress.
func (h *Headless) ReadyState() ReadyState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Info returns the probe result for the loaded resource.
func (h *Headless) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

// Play starts the clock. At the end of the resource it rewinds first.
func (h *Headless) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready < HaveMetadata {
		return ErrNotReady
	}
	if h.playing {
		return nil
	}
	if h.position >= h.duration {
		h.position = 0
	}
	h.playing = true
	h.stop = make(chan struct{})
	go h.run(h.gen, h.stop)
	return nil
}

func (h *Headless) run(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			h.mu.Lock()
			if gen != h.gen || !h.playing {
				h.mu.Unlock()
				return
			}
			h.position += now.Sub(last)
			last = now
			ended := h.position >= h.duration
			if ended {
				h.position = h.duration
				h.playing = false
				h.stop = nil
			}
			pos := h.position
			h.mu.Unlock()

			h.ls.emit(Event{Type: EventTimeUpdate, Time: pos})
			if ended {
				h.ls.emit(Event{Type: EventEnded, Time: pos})
				return
			}
		}
	}
}

// Pause stops the clock.
func (h *Headless) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopClockLocked()
}

func (h *Headless) stopClockLocked() {
	h.playing = false
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
}

// Paused reports whether the clock is stopped.
func (h *Headless) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.playing
}

// CurrentTime returns the playback position.
func (h *Headless) CurrentTime() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// SetCurrentTime moves the position, clamped to the resource.
func (h *Headless) SetCurrentTime(t time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t < 0 {
		t = 0
	}
	if t > h.duration {
		t = h.duration
	}
	h.position = t
}

// Duration returns the probed duration, zero until metadata loads.
func (h *Headless) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

// SetVolume records the output gain.
func (h *Headless) SetVolume(v float64) {
	h.mu.Lock()
	h.volume = v
	h.mu.Unlock()
}

// Volume returns the output gain.
func (h *Headless) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

// On registers an event handler.
func (h *Headless) On(t EventType, fn Handler) func() {
	return h.ls.on(t, fn)
}

// Close stops playback, abandons any load and drops all handlers.
func (h *Headless) Close() error {
	h.mu.Lock()
	h.stopClockLocked()
	h.gen++
	h.mu.Unlock()
	h.ls.reset()
	return nil
}
