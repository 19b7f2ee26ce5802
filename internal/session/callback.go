package session

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tessro/cadence/internal/api"
)

// CallbackPath is where the OAuth redirect lands.
const CallbackPath = "/callback"

// CallbackResult is what the OAuth redirect delivered.
type CallbackResult struct {
	Token string
	User  api.User
	Error string
}

// Err converts a failed result into an error.
func (r CallbackResult) Err() error {
	switch {
	case r.Error != "":
		return fmt.Errorf("sign-in failed: %s", describeOAuthError(r.Error))
	case r.Token == "":
		return fmt.Errorf("sign-in failed: missing credentials")
	}
	return nil
}

func describeOAuthError(code string) string {
	switch code {
	case "google_auth_failed":
		return "Google sign-in failed, please try again"
	case "token_generation_failed":
		return "the server could not create a session, please try again"
	case "invalid_user":
		return "the server sent an unreadable profile"
	default:
		return code
	}
}

// CallbackServer receives the browser redirect that completes an OAuth
// sign-in: /callback?token=...&user=<json>&error=...
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
	result   chan CallbackResult
}

// NewCallbackServer listens on addr, e.g. "127.0.0.1:8889". Port 0 picks a
// free port.
func NewCallbackServer(addr string) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	cs := &CallbackServer{
		listener: listener,
		result:   make(chan CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, cs.handleCallback)

	cs.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return cs, nil
}

// Start begins serving HTTP requests in the background.
func (cs *CallbackServer) Start() {
	go func() {
		_ = cs.server.Serve(cs.listener)
	}()
}

// Wait blocks until a callback is received or ctx is done.
func (cs *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case result := <-cs.result:
		return result, nil
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Shutdown gracefully shuts down the server.
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	return cs.server.Shutdown(ctx)
}

// Port returns the port the server is listening on.
func (cs *CallbackServer) Port() int {
	return cs.listener.Addr().(*net.TCPAddr).Port
}

// URL returns the redirect URL to hand to the server.
func (cs *CallbackServer) URL() string {
	return fmt.Sprintf("http://%s%s", cs.listener.Addr().String(), CallbackPath)
}

// AuthorizeURL builds the browser URL that starts the OAuth flow on the API
// server. The redirect parameter asks the server to send the browser back to
// the callback server.
func AuthorizeURL(apiBase, oauthPath, redirect string) string {
	u := apiBase + oauthPath
	if redirect == "" {
		return u
	}
	return u + "?redirect=" + url.QueryEscape(redirect)
}

func (cs *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result := CallbackResult{
		Token: query.Get("token"),
		Error: query.Get("error"),
	}
	if raw := query.Get("user"); raw != "" && result.Error == "" {
		u, err := api.DecodeUser([]byte(raw))
		if err != nil {
			result.Error = "invalid_user"
		} else {
			result.User = u
		}
	}

	// Non-blocking in case of duplicate callbacks
	select {
	case cs.result <- result:
	default:
	}

	if err := result.Err(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Sign-in Failed</title></head>
<body>
<h1>Sign-in Failed</h1>
<p>%s</p>
<p>You can close this window.</p>
</body>
</html>`, html.EscapeString(err.Error()))
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Signed In</title></head>
<body>
<h1>Signed In to Cadence</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)
}
