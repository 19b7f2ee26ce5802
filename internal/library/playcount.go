package library

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/playback"
)

// PlayCountAPI records plays.
type PlayCountAPI interface {
	IncrementPlayCount(ctx context.Context, trackID string) (int, error)
}

// PlayCounter posts a play-count increment each time a new track starts.
// Posts happen on a background goroutine so observers are never blocked;
// when the backlog is full, plays are dropped.
type PlayCounter struct {
	api     PlayCountAPI
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	ch     chan string
	wg     sync.WaitGroup
}

// NewPlayCounter starts the background poster. Call Close to stop it.
func NewPlayCounter(a PlayCountAPI, logger *zap.Logger) *PlayCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PlayCounter{
		api:     a,
		logger:  logger,
		timeout: 5 * time.Second,
		ch:      make(chan string, 16),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Attach subscribes the counter to c.
func (p *PlayCounter) Attach(c *playback.Controller) func() {
	return c.Subscribe(p.Observe)
}

// Observe handles one controller event.
func (p *PlayCounter) Observe(ev playback.Event) {
	if ev.Type != playback.EventTrackStarted || ev.Track == nil || ev.Track.ID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- ev.Track.ID:
	default:
		p.logger.Debug("play count backlog full, dropping", zap.String("track_id", ev.Track.ID))
	}
}

func (p *PlayCounter) run() {
	defer p.wg.Done()
	for id := range p.ch {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		n, err := p.api.IncrementPlayCount(ctx, id)
		cancel()
		if err != nil {
			p.logger.Debug("play count not recorded", zap.String("track_id", id), zap.Error(err))
			continue
		}
		p.logger.Debug("play recorded", zap.String("track_id", id), zap.Int("play_count", n))
	}
}

// Close stops accepting plays and waits for pending posts.
func (p *PlayCounter) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
