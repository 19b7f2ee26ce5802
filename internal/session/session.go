// Package session holds the signed-in user's token and profile and the
// selected UI language, persisted in the local store.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/api"
	cerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/store"
)

// Supported languages. The first is the default.
var Languages = []string{"vi", "en"}

// DefaultLanguage is used when none has been selected.
const DefaultLanguage = "vi"

// ErrUnsupportedLanguage is returned by SetLanguage.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// AuthAPI is the subset of the API client the session drives.
type AuthAPI interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, r api.Registration) (*api.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*api.User, error)
}

// Session is safe for concurrent use.
type Session struct {
	store  store.Store
	auth   AuthAPI
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *api.User
	lang  string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Open loads the persisted session from st.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Session, error) {
	s := &Session{
		store:  st,
		logger: zap.NewNop(),
		now:    time.Now,
		lang:   DefaultLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}

	tok, err := st.Get(ctx, store.KeyAuthToken)
	switch {
	case err == nil:
		s.token = string(tok)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load session token: %w", err)
	}

	raw, err := st.Get(ctx, store.KeyUser)
	switch {
	case err == nil:
		u, derr := api.DecodeUser(raw)
		if derr != nil {
			s.logger.Warn("discarding unreadable cached profile", zap.Error(derr))
			_ = st.Delete(ctx, store.KeyUser)
		} else {
			s.user = &u
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load session user: %w", err)
	}

	lang, err := st.Get(ctx, store.KeyLanguage)
	if err == nil && supported(string(lang)) {
		s.lang = string(lang)
	}

	return s, nil
}

// Bind attaches the API used by Login, Register, Logout and Refresh.
func (s *Session) Bind(a AuthAPI) {
	s.mu.Lock()
	s.auth = a
	s.mu.Unlock()
}

func (s *Session) authAPI() (AuthAPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return nil, errors.New("session: no API bound")
	}
	return s.auth, nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns a copy of the cached profile, or nil.
func (s *Session) CurrentUser() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID returns the signed-in user's id, or "" when anonymous. It falls back
// to the token's id claim when no profile is cached.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil && s.user.ID != "" {
		return s.user.ID
	}
	if s.token == "" {
		return ""
	}
	claims := parseClaims(s.token)
	for _, k := range []string{"id", "userId", "sub"} {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// IsAuthenticated reports whether a token is present and, if it is a JWT
// carrying exp, not yet expired. Signatures are not verified here.
func (s *Session) IsAuthenticated() bool {
	tok := s.Token()
	if tok == "" {
		return false
	}
	exp, ok := expiry(tok)
	if !ok {
		return true
	}
	return s.now().Before(exp)
}

// ExpiresAt returns the token's exp claim, if any.
func (s *Session) ExpiresAt() (time.Time, bool) {
	return expiry(s.Token())
}

func parseClaims(tok string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil
	}
	return claims
}

func expiry(tok string) (time.Time, bool) {
	claims := parseClaims(tok)
	if claims == nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Login signs in with credentials and persists the result.
func (s *Session) Login(ctx context.Context, creds api.Credentials) (*api.User, error) {
	a, err := s.authAPI()
	if err != nil {
		return nil, err
	}
	res, err := a.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.Establish(ctx, res.Token, res.User); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, r api.Registration) (*api.User, error) {
	a, err := s.authAPI()
	if err != nil {
		return nil, err
	}
	res, err := a.Register(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := s.Establish(ctx, res.Token, res.User); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Establish stores a token and profile obtained elsewhere, e.g. from the
// OAuth callback.
func (s *Session) Establish(ctx context.Context, token string, u api.User) error {
	if token == "" {
		return cerrors.ErrNotAuthenticated
	}
	if err := s.store.Set(ctx, store.KeyAuthToken, []byte(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := store.SetJSON(ctx, s.store, store.KeyUser, u); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = &u
	s.mu.Unlock()

	s.logger.Info("signed in", zap.String("user_id", u.ID))
	return nil
}

// Logout tells the server, then clears local state regardless of the
// server's answer.
func (s *Session) Logout(ctx context.Context) error {
	if a, err := s.authAPI(); err == nil && s.Token() != "" {
		if err := a.Logout(ctx); err != nil {
			s.logger.Debug("server logout failed", zap.Error(err))
		}
	}
	return s.clear(ctx)
}

// Refresh reloads the profile from the server. A failure clears the session.
func (s *Session) Refresh(ctx context.Context) (*api.User, error) {
	if s.Token() == "" {
		return nil, cerrors.ErrNotAuthenticated
	}
	a, err := s.authAPI()
	if err != nil {
		return nil, err
	}
	u, err := a.Me(ctx)
	if err != nil {
		if cerr := s.clear(ctx); cerr != nil {
			s.logger.Warn("clear session", zap.Error(cerr))
		}
		return nil, err
	}
	if err := store.SetJSON(ctx, s.store, store.KeyUser, u); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return u, nil
}

// Expire is the API client's 401 hook: the token is no longer accepted.
func (s *Session) Expire() {
	if s.Token() == "" {
		return
	}
	s.logger.Info("session expired")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.clear(ctx); err != nil {
		s.logger.Warn("clear session", zap.Error(err))
	}
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	return errors.Join(
		ignoreMissing(s.store.Delete(ctx, store.KeyAuthToken)),
		ignoreMissing(s.store.Delete(ctx, store.KeyUser)),
	)
}

func ignoreMissing(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Language returns the selected UI language.
func (s *Session) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

// SetLanguage selects and persists a UI language.
func (s *Session) SetLanguage(ctx context.Context, lang string) error {
	if !supported(lang) {
		return fmt.Errorf("%w: %q (supported: vi, en)", ErrUnsupportedLanguage, lang)
	}
	if err := s.store.Set(ctx, store.KeyLanguage, []byte(lang)); err != nil {
		return err
	}
	s.mu.Lock()
	s.lang = lang
	s.mu.Unlock()
	return nil
}

func supported(lang string) bool {
	return slices.Contains(Languages, lang)
}
