package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tessro/cadence/internal/core"
	cerrors "github.com/tessro/cadence/internal/errors"
)

func (q UserQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func adminUserPath(id string, rest string) string {
	p := "/admin/users/" + url.PathEscape(id)
	if rest != "" {
		p += "/" + rest
	}
	return p
}

// Users lists accounts. Requires the admin role.
func (c *Client) Users(ctx context.Context, q UserQuery) (*UserPage, error) {
	env, err := c.get(ctx, "/admin/users", q.values())
	if err != nil {
		return nil, err
	}
	var data struct {
		Users      []wireUser `json:"users"`
		Pagination struct {
			Total      int `json:"total"`
			TotalPages int `json:"totalPages"`
			Page       int `json:"page"`
		} `json:"pagination"`
	}
	if err := env.decode(&data); err != nil {
		return nil, err
	}
	page := &UserPage{
		Users:      make([]User, 0, len(data.Users)),
		Total:      data.Pagination.Total,
		TotalPages: data.Pagination.TotalPages,
		Page:       data.Pagination.Page,
	}
	for _, w := range data.Users {
		page.Users = append(page.Users, w.toUser())
	}
	return page, nil
}

// SetUserRole changes a user's role ("user" or "admin").
func (c *Client) SetUserRole(ctx context.Context, id, role string) error {
	_, err := c.put(ctx, adminUserPath(id, "role"), map[string]string{"role": role})
	return err
}

// SetUserStatus activates or deactivates a user.
func (c *Client) SetUserStatus(ctx context.Context, id string, active bool) error {
	_, err := c.put(ctx, adminUserPath(id, "status"), map[string]bool{"isActive": active})
	return err
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.delete(ctx, adminUserPath(id, ""), nil)
	return err
}

// ApproveTrack marks a pending upload as approved.
func (c *Client) ApproveTrack(ctx context.Context, id string) error {
	_, err := c.put(ctx, "/admin/tracks/"+url.PathEscape(id)+"/approve", nil)
	return notFound(err, cerrors.ErrTrackNotFound)
}

// RejectTrack marks a pending upload as rejected.
func (c *Client) RejectTrack(ctx context.Context, id, reason string) error {
	_, err := c.put(ctx, "/admin/tracks/"+url.PathEscape(id)+"/reject", map[string]string{"reason": reason})
	return notFound(err, cerrors.ErrTrackNotFound)
}

// PendingTracks lists uploads awaiting moderation.
func (c *Client) PendingTracks(ctx context.Context, page int) (*TrackPage, error) {
	return c.ListTracks(ctx, TrackQuery{Status: string(core.TrackPending), Page: page})
}
