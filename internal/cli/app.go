package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/audio"
	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/history"
	"github.com/tessro/cadence/internal/library"
	"github.com/tessro/cadence/internal/logging"
	"github.com/tessro/cadence/internal/playback"
	"github.com/tessro/cadence/internal/session"
	"github.com/tessro/cadence/internal/store"
)

// app holds the services every command shares.
type app struct {
	logger  *zap.Logger
	store   store.Store
	session *session.Session
	client  *api.Client
}

// newApp builds the shared services from the loaded config. console receives
// human-readable logs; nil keeps the terminal clean for full-screen UIs.
func newApp(ctx context.Context, console io.Writer) (*app, error) {
	logger, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}

	sess, err := session.Open(ctx, st, session.WithLogger(logger))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	client := api.New(cfg.API.BaseURL,
		api.WithToken(sess.Token),
		api.WithUnauthorized(sess.Expire),
		api.WithLogger(logger),
		api.WithRetries(cfg.API.Retries),
	)
	sess.Bind(client)

	return &app{
		logger:  logger,
		store:   st,
		session: sess,
		client:  client,
	}, nil
}

// openApp is newApp with console logs on stderr in verbose mode.
func openApp(ctx context.Context) (*app, error) {
	var console io.Writer
	if Verbose() {
		console = os.Stderr
	}
	return newApp(ctx, console)
}

// Close releases the store and flushes logs.
func (a *app) Close() {
	_ = a.store.Close()
	_ = a.logger.Sync()
}

// requireAuth fails unless a non-expired token is held.
func (a *app) requireAuth() error {
	if !a.session.IsAuthenticated() {
		return cerrors.ErrNotAuthenticated
	}
	return nil
}

// rig is a running player with its sidecars attached.
type rig struct {
	ctrl    *playback.Controller
	history *history.Sidecar
	likes   *library.Likes
	counter *library.PlayCounter
	detach  []func()
}

// newRig starts a headless player. Play counts are posted only for
// signed-in users.
func (a *app) newRig() (*rig, error) {
	repeat, ok := core.ParseRepeatMode(cfg.Playback.Repeat)
	if !ok {
		return nil, fmt.Errorf("%w: playback.repeat %q", cerrors.ErrInvalidConfig, cfg.Playback.Repeat)
	}

	el := audio.NewHeadless(
		audio.WithToken(a.session.Token),
		audio.WithTick(cfg.Playback.Tick()),
		audio.WithLogger(a.logger),
	)
	ctrl := playback.New(el, playback.Options{
		MediaBase:        cfg.API.MediaBase(),
		LoadTimeout:      cfg.Playback.LoadTimeoutDuration(),
		SkipStep:         cfg.Playback.SkipDuration(),
		RestartThreshold: cfg.Playback.RestartThresholdDuration(),
		Volume:           cfg.Playback.Volume,
		Shuffle:          cfg.Playback.Shuffle,
		Repeat:           repeat,
		Logger:           a.logger,
	})

	r := &rig{
		ctrl: ctrl,
		history: history.New(a.store, a.session.UserID,
			history.WithLimit(cfg.History.Limit),
			history.WithLogger(a.logger),
		),
		likes: library.NewLikes(a.client, ctrl, a.logger),
	}
	r.detach = append(r.detach, r.history.Attach(ctrl))

	if a.session.IsAuthenticated() {
		r.counter = library.NewPlayCounter(a.client, a.logger)
		r.detach = append(r.detach, r.counter.Attach(ctrl))
	}
	return r, nil
}

// Close stops the player and waits for pending play counts.
func (r *rig) Close() {
	for _, d := range r.detach {
		d()
	}
	_ = r.ctrl.Close()
	if r.counter != nil {
		r.counter.Close()
	}
}
