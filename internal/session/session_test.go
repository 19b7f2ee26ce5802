package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tessro/cadence/internal/api"
	cerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/store"
)

type fakeAuth struct {
	res       *api.AuthResult
	err       error
	me        *api.User
	meErr     error
	logoutErr error
	logouts   int
}

func (f *fakeAuth) Login(context.Context, api.Credentials) (*api.AuthResult, error) {
	return f.res, f.err
}

func (f *fakeAuth) Register(context.Context, api.Registration) (*api.AuthResult, error) {
	return f.res, f.err
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAuth) Me(context.Context) (*api.User, error) {
	return f.me, f.meErr
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return st
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return tok
}

func TestLoginPersists(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	s, err := Open(ctx, st)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Bind(&fakeAuth{res: &api.AuthResult{Token: "tok", User: api.User{ID: "u1", Name: "Ana"}}})

	if _, err := s.Login(ctx, api.Credentials{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.Token() != "tok" || s.UserID() != "u1" {
		t.Errorf("Token=%q UserID=%q", s.Token(), s.UserID())
	}

	reopened, err := Open(ctx, st)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reopened.Token() != "tok" {
		t.Errorf("reopened Token() = %q", reopened.Token())
	}
	if u := reopened.CurrentUser(); u == nil || u.Name != "Ana" {
		t.Errorf("reopened CurrentUser() = %+v", u)
	}
}

func TestLoginFailureLeavesAnonymous(t *testing.T) {
	ctx := context.Background()
	s, _ := Open(ctx, newStore(t))
	s.Bind(&fakeAuth{err: &cerrors.APIError{Status: 400, Message: "bad credentials"}})

	if _, err := s.Login(ctx, api.Credentials{}); err == nil {
		t.Fatal("Login() error = nil")
	}
	if s.IsAuthenticated() || s.UserID() != "" {
		t.Error("failed login should leave the session anonymous")
	}
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	s, _ := Open(ctx, st)
	fa := &fakeAuth{logoutErr: errors.New("offline")}
	s.Bind(fa)
	if err := s.Establish(ctx, "tok", api.User{ID: "u1"}); err != nil {
		t.Fatalf("Establish() error = %v", err)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if fa.logouts != 1 {
		t.Errorf("server logout called %d times", fa.logouts)
	}
	if s.Token() != "" || s.CurrentUser() != nil {
		t.Error("local session not cleared")
	}
	if _, err := st.Get(ctx, store.KeyAuthToken); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("token still stored: %v", err)
	}
}

func TestExpireClearsSession(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	s, _ := Open(ctx, st)
	_ = s.Establish(ctx, "tok", api.User{ID: "u1"})

	s.Expire()

	if s.IsAuthenticated() {
		t.Error("IsAuthenticated() after Expire")
	}
	if _, err := st.Get(ctx, store.KeyUser); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("user still stored: %v", err)
	}
}

func TestRefreshFailureClears(t *testing.T) {
	ctx := context.Background()
	s, _ := Open(ctx, newStore(t))
	s.Bind(&fakeAuth{meErr: &cerrors.APIError{Status: 401}})
	_ = s.Establish(ctx, "tok", api.User{ID: "u1"})

	_, err := s.Refresh(ctx)
	if !errors.Is(err, cerrors.ErrAuthExpired) {
		t.Errorf("Refresh() error = %v, want ErrAuthExpired", err)
	}
	if s.Token() != "" {
		t.Error("Refresh failure should clear the token")
	}
}

func TestRefreshUpdatesProfile(t *testing.T) {
	ctx := context.Background()
	s, _ := Open(ctx, newStore(t))
	s.Bind(&fakeAuth{me: &api.User{ID: "u1", Name: "New Name", Role: "admin"}})
	_ = s.Establish(ctx, "tok", api.User{ID: "u1", Name: "Old"})

	u, err := s.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if u.Name != "New Name" || !s.CurrentUser().IsAdmin() {
		t.Errorf("CurrentUser() = %+v", s.CurrentUser())
	}
}

func TestIsAuthenticatedExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  bool
	}{
		{"empty", func(*testing.T) string { return "" }, false},
		{"opaque token", func(*testing.T) string { return "not-a-jwt" }, true},
		{"jwt without exp", func(t *testing.T) string { return signed(t, jwt.MapClaims{"id": "u1"}) }, true},
		{"jwt valid", func(t *testing.T) string {
			return signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
		}, true},
		{"jwt expired", func(t *testing.T) string {
			return signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := newStore(t)
			if tok := tt.token(t); tok != "" {
				_ = st.Set(ctx, store.KeyAuthToken, []byte(tok))
			}
			s, err := Open(ctx, st, WithClock(func() time.Time { return now }))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if got := s.IsAuthenticated(); got != tt.want {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserIDFromTokenClaims(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	_ = st.Set(ctx, store.KeyAuthToken, []byte(signed(t, jwt.MapClaims{"id": "from-claim"})))
	s, _ := Open(ctx, st)
	if got := s.UserID(); got != "from-claim" {
		t.Errorf("UserID() = %q, want from-claim", got)
	}
}

func TestCorruptProfileDiscarded(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	_ = st.Set(ctx, store.KeyUser, []byte("{not json"))
	s, err := Open(ctx, st)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.CurrentUser() != nil {
		t.Error("corrupt profile should be dropped")
	}
}

func TestLanguage(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	s, _ := Open(ctx, st)
	if s.Language() != "vi" {
		t.Errorf("default Language() = %q, want vi", s.Language())
	}
	if err := s.SetLanguage(ctx, "fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("SetLanguage(fr) error = %v", err)
	}
	if err := s.SetLanguage(ctx, "en"); err != nil {
		t.Fatalf("SetLanguage(en) error = %v", err)
	}
	reopened, _ := Open(ctx, st)
	if reopened.Language() != "en" {
		t.Errorf("persisted Language() = %q, want en", reopened.Language())
	}
}

func TestCallbackServer(t *testing.T) {
	server, err := NewCallbackServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	user := url.QueryEscape(`{"_id":"u7","name":"Minh","email":"m@x.y"}`)
	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Get(fmt.Sprintf("%s?token=abc&user=%s", server.URL(), user))
		if err != nil {
			t.Errorf("callback request: %v", err)
			return
		}
		_ = resp.Body.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := server.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result.Token != "abc" || result.User.ID != "u7" || result.User.Name != "Minh" {
		t.Errorf("result = %+v", result)
	}
	if result.Err() != nil {
		t.Errorf("Err() = %v", result.Err())
	}
	<-done
}

func TestCallbackServerError(t *testing.T) {
	server, err := NewCallbackServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewCallbackServer() error = %v", err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Get(server.URL() + "?error=google_auth_failed")
		if err != nil {
			t.Errorf("callback request: %v", err)
			return
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := server.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result.Err() == nil {
		t.Error("Err() = nil for google_auth_failed")
	}
	<-done
}

func TestAuthorizeURL(t *testing.T) {
	got := AuthorizeURL("http://localhost:4000/api", "/auth/google", "http://127.0.0.1:8889/callback")
	want := "http://localhost:4000/api/auth/google?redirect=http%3A%2F%2F127.0.0.1%3A8889%2Fcallback"
	if got != want {
		t.Errorf("AuthorizeURL() = %q, want %q", got, want)
	}
}
