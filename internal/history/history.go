// Package history keeps the per-user listening history.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/playback"
	"github.com/tessro/cadence/internal/store"
)

// DefaultLimit is the number of entries kept per user.
const DefaultLimit = 20

// UserFunc returns the signed-in user's ID, or "" when anonymous.
type UserFunc func() string

// Sidecar records tracks as they start playing.
type Sidecar struct {
	store  store.Store
	user   UserFunc
	limit  int
	now    func() time.Time
	logger *zap.Logger

	mu sync.Mutex
}

// Option configures a Sidecar.
type Option func(*Sidecar)

// WithLimit sets the history cap.
func WithLimit(n int) Option {
	return func(s *Sidecar) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sidecar) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sidecar) { s.logger = l }
}

// New creates a Sidecar persisting to st.
func New(st store.Store, user UserFunc, opts ...Option) *Sidecar {
	s := &Sidecar{
		store:  st,
		user:   user,
		limit:  DefaultLimit,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("history")
	return s
}

// Observe is a playback.Observer. Failures are logged, never returned to
// the controller.
func (s *Sidecar) Observe(ev playback.Event) {
	if ev.Type != playback.EventTrackStarted || ev.Track == nil {
		return
	}
	if err := s.Record(context.Background(), *ev.Track); err != nil {
		s.logger.Warn("failed to record history", zap.String("track", ev.Track.ID), zap.Error(err))
	}
}

// Attach subscribes the sidecar to c.
func (s *Sidecar) Attach(c *playback.Controller) func() {
	return c.Subscribe(s.Observe)
}

// Record moves track to the front of the signed-in user's history and trims
// it to the cap. It does nothing for anonymous sessions.
func (s *Sidecar) Record(ctx context.Context, track core.Track) error {
	userID := s.user()
	if userID == "" || track.ID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	kept := make([]core.HistoryEntry, 0, len(entries)+1)
	t := track
	kept = append(kept, core.HistoryEntry{Track: &t, PlayedAt: s.now()})
	for _, e := range entries {
		if e.Track == nil || e.Track.ID == track.ID {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > s.limit {
		kept = kept[:s.limit]
	}

	return store.SetJSON(ctx, s.store, store.HistoryKey(userID), kept)
}

// Recent returns up to n of the most recent entries.
func (s *Sidecar) Recent(ctx context.Context, n int) ([]core.HistoryEntry, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// All returns the whole history, most recent first. Anonymous sessions get
// an empty list.
func (s *Sidecar) All(ctx context.Context) ([]core.HistoryEntry, error) {
	userID := s.user()
	if userID == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, userID)
}

// Clear erases the signed-in user's history.
func (s *Sidecar) Clear(ctx context.Context) error {
	userID := s.user()
	if userID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, store.HistoryKey(userID))
}

func (s *Sidecar) load(ctx context.Context, userID string) ([]core.HistoryEntry, error) {
	var entries []core.HistoryEntry
	err := store.GetJSON(ctx, s.store, store.HistoryKey(userID), &entries)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		// A corrupt log is discarded rather than blocking new plays.
		s.logger.Warn("discarding unreadable history", zap.String("user", userID), zap.Error(err))
		return nil, nil
	}
	return entries, nil
}
