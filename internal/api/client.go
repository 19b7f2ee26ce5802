package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cerrors "github.com/tessro/cadence/internal/errors"
)

const (
	defaultTimeout = 15 * time.Second

	// Retry configuration for transient errors
	defaultRetries = 3
	baseRetryWait  = 500 * time.Millisecond

	maxResponseSize = 16 << 20
)

// Client is a Cadence REST API client.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          func() string
	onUnauthorized func()
	logger         *zap.Logger
	retries        int
	retryWait      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token source. It is called on every request.
func WithToken(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithUnauthorized sets a hook run whenever the server answers 401.
func WithUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetries sets how many times transient failures are retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = max(n, 0) }
}

// WithRetryWait sets the base backoff between retries.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:4000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      func() string { return "" },
		logger:     zap.NewNop(),
		retries:    defaultRetries,
		retryWait:  baseRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the response wrapper every endpoint uses.
type envelope struct {
	Success    *bool             `json:"success"`
	Message    string            `json:"message"`
	Errors     []json.RawMessage `json:"errors"`
	Data       json.RawMessage   `json:"data"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
	Page       int               `json:"page"`
	Count      int               `json:"count"`
}

// errorMessage joins the envelope's message and validation errors.
func (e *envelope) errorMessage() string {
	msgs := make([]string, 0, len(e.Errors)+1)
	if e.Message != "" {
		msgs = append(msgs, e.Message)
	}
	for _, raw := range e.Errors {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			msgs = append(msgs, s)
			continue
		}
		var obj struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &obj) == nil {
			if m := firstNonEmpty(obj.Msg, obj.Message); m != "" {
				msgs = append(msgs, m)
			}
		}
	}
	return strings.Join(msgs, "; ")
}

// decode unmarshals the data field into v.
func (e *envelope) decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// call describes one API request.
type call struct {
	method      string
	path        string
	query       url.Values
	body        any
	raw         []byte
	contentType string
	noRetry     bool
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	return c.do(ctx, call{method: http.MethodGet, path: path, query: query})
}

func (c *Client) post(ctx context.Context, path string, body any) (*envelope, error) {
	return c.do(ctx, call{method: http.MethodPost, path: path, body: body})
}

func (c *Client) put(ctx context.Context, path string, body any) (*envelope, error) {
	return c.do(ctx, call{method: http.MethodPut, path: path, body: body})
}

func (c *Client) delete(ctx context.Context, path string, body any) (*envelope, error) {
	return c.do(ctx, call{method: http.MethodDelete, path: path, body: body})
}

func (c *Client) do(ctx context.Context, r call) (*envelope, error) {
	payload := r.raw
	contentType := r.contentType
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
		contentType = "application/json"
	}

	fullURL := c.baseURL + r.path
	if len(r.query) > 0 {
		fullURL += "?" + r.query.Encode()
	}

	retries := c.retries
	if r.noRetry {
		retries = 0
	}
	requestID := uuid.NewString()
	log := c.logger.With(
		zap.String("method", r.method),
		zap.String("url", fullURL),
		zap.String("request_id", requestID),
	)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := c.retryWait * time.Duration(1<<(attempt-1))
			log.Debug("retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = transportError(err)
			log.Debug("network error", zap.Error(err))
			continue
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: failed to read response: %w", cerrors.ErrNetworkError, err)
			continue
		}

		log.Debug("response", zap.Int("status", resp.StatusCode))

		env := &envelope{}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, env); err != nil && resp.StatusCode < 400 {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}
		}

		if resp.StatusCode >= 500 {
			lastErr = c.apiError(resp.StatusCode, env, requestID, respBody)
			log.Warn("server error", zap.Int("status", resp.StatusCode), zap.Error(lastErr))
			continue
		}

		if resp.StatusCode >= 400 {
			if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
				c.onUnauthorized()
			}
			return nil, c.apiError(resp.StatusCode, env, requestID, respBody)
		}

		if env.Success != nil && !*env.Success {
			return nil, c.apiError(resp.StatusCode, env, requestID, respBody)
		}
		return env, nil
	}

	if retries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", retries, lastErr)
}

func (c *Client) apiError(status int, env *envelope, requestID string, body []byte) error {
	msg := env.errorMessage()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &cerrors.APIError{Status: status, Message: msg, RequestID: requestID}
}

func transportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", cerrors.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", cerrors.ErrNetworkError, err)
}

// notFound maps a 404 onto a domain sentinel while keeping the API error.
func notFound(err error, sentinel error) error {
	var apiErr *cerrors.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
