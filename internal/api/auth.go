package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func decodeAuth(env *envelope) (*AuthResult, error) {
	var data struct {
		User  wireUser `json:"user"`
		Token string   `json:"token"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	return &AuthResult{User: data.User.toUser(), Token: data.Token}, nil
}

func decodeUser(env *envelope) (*User, error) {
	var data struct {
		User *wireUser `json:"user"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	if data.User == nil {
		var w wireUser
		if err := env.decode(&w); err != nil {
			return nil, err
		}
		data.User = &w
	}
	u := data.User.toUser()
	return &u, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, r Registration) (*AuthResult, error) {
	env, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: r, noRetry: true})
	if err != nil {
		return nil, err
	}
	return decodeAuth(env)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	env, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: creds, noRetry: true})
	if err != nil {
		return nil, err
	}
	return decodeAuth(env)
}

// Logout invalidates the token server-side.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/logout", noRetry: true})
	return err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	env, err := c.get(ctx, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

// UpdateMe changes the authenticated user's profile.
func (c *Client) UpdateMe(ctx context.Context, upd ProfileUpdate) (*User, error) {
	env, err := c.put(ctx, "/auth/me", upd)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

// ChangePassword changes the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	_, err := c.do(ctx, call{
		method:  http.MethodPut,
		path:    "/auth/change-password",
		body:    map[string]string{"currentPassword": current, "newPassword": next},
		noRetry: true,
	})
	return err
}

// DeleteAccount permanently deletes the authenticated user's account.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	_, err := c.do(ctx, call{
		method:  http.MethodDelete,
		path:    "/auth/delete-account",
		body:    map[string]string{"password": password},
		noRetry: true,
	})
	return err
}

// LikedTracks returns the tracks the authenticated user has liked. A limit of
// zero lets the server choose.
func (c *Client) LikedTracks(ctx context.Context, limit int) (*TrackPage, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	env, err := c.get(ctx, "/auth/liked-tracks", q)
	if err != nil {
		return nil, err
	}
	var data struct {
		Tracks []wireTrack `json:"tracks"`
		Total  int         `json:"total"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	page := &TrackPage{Tracks: tracksToCore(data.Tracks), Total: data.Total}
	for i := range page.Tracks {
		page.Tracks[i].IsLiked = true
	}
	page.Count = len(page.Tracks)
	if page.Total == 0 {
		page.Total = page.Count
	}
	return page, nil
}
