package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tessro/cadence/internal/core"
)

// Duration decodes either a number of seconds or an "m:ss"/"h:mm:ss" string.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*d = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		v, err := ParseClock(str)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s", s)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(time.Duration(d).Seconds(), 'f', -1, 64)), nil
}

// ParseClock parses "ss", "m:ss" or "h:mm:ss".
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !strings.Contains(s, ":") {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}

// canonicalID picks one identifier from the aliases the server uses.
func canonicalID(mongoID, underscoreID, id string) string {
	switch {
	case mongoID != "":
		return mongoID
	case underscoreID != "":
		return underscoreID
	default:
		return id
	}
}

// ref is a field that is either an ID string or an embedded object.
type ref struct {
	ID   string
	Name string
}

func (r *ref) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	if string(b) == "null" {
		return nil
	}
	var obj struct {
		ID       string `json:"id"`
		OID      string `json:"_id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = canonicalID("", obj.OID, obj.ID)
	r.Name = obj.Name
	if r.Name == "" {
		r.Name = obj.Username
	}
	return nil
}

// wireTrack is a track as the server sends it.
type wireTrack struct {
	ID           string   `json:"id"`
	OID          string   `json:"_id"`
	MongoID      string   `json:"mongoId"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	Album        string   `json:"album"`
	Genre        string   `json:"genre"`
	Audio        string   `json:"audio"`
	AudioURL     string   `json:"audioUrl"`
	FilePath     string   `json:"filePath"`
	Image        string   `json:"image"`
	ImageURL     string   `json:"imageUrl"`
	Duration     Duration `json:"duration"`
	LikeCount    int      `json:"likeCount"`
	Likes        int      `json:"likes"`
	PlayCount    int      `json:"playCount"`
	Plays        int      `json:"plays"`
	CommentCount int      `json:"commentCount"`
	IsLiked      bool     `json:"isLiked"`
	Status       string   `json:"status"`
	UploadedBy   ref      `json:"uploadedBy"`
}

func (w wireTrack) toCore() core.Track {
	t := core.Track{
		ID:           canonicalID(w.MongoID, w.OID, w.ID),
		Title:        w.Title,
		Artist:       w.Artist,
		Album:        w.Album,
		Genre:        w.Genre,
		AudioURL:     firstNonEmpty(w.Audio, w.AudioURL),
		FilePath:     w.FilePath,
		ImageURL:     firstNonEmpty(w.Image, w.ImageURL),
		Duration:     time.Duration(w.Duration),
		LikeCount:    max(w.LikeCount, w.Likes),
		PlayCount:    max(w.PlayCount, w.Plays),
		CommentCount: w.CommentCount,
		IsLiked:      w.IsLiked,
		Status:       core.TrackStatus(w.Status),
		UploadedBy:   w.UploadedBy.ID,
	}
	return t
}

func tracksToCore(ws []wireTrack) []core.Track {
	out := make([]core.Track, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.toCore())
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// User is a Cadence account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}

// DisplayName returns the best available name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return firstNonEmpty(u.Name, u.Username, u.Email)
}

type wireUser struct {
	ID        string    `json:"id"`
	OID       string    `json:"_id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role"`
	IsActive  *bool     `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireUser) toUser() User {
	u := User{
		ID:        canonicalID("", w.OID, w.ID),
		Name:      w.Name,
		Username:  w.Username,
		Email:     w.Email,
		Avatar:    w.Avatar,
		Role:      w.Role,
		IsActive:  true,
		CreatedAt: w.CreatedAt,
	}
	if w.IsActive != nil {
		u.IsActive = *w.IsActive
	}
	return u
}

// DecodeUser parses a user object in any of the server's shapes.
func DecodeUser(b []byte) (User, error) {
	var w wireUser
	if err := json.Unmarshal(b, &w); err != nil {
		return User{}, err
	}
	return w.toUser(), nil
}

// Comment is a comment on a track.
type Comment struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type wireComment struct {
	ID      string `json:"id"`
	OID     string `json:"_id"`
	Content string `json:"content"`
	User    struct {
		ID     string `json:"id"`
		OID    string `json:"_id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	} `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireComment) toComment() Comment {
	return Comment{
		ID:         canonicalID("", w.OID, w.ID),
		Content:    w.Content,
		UserID:     canonicalID("", w.User.OID, w.User.ID),
		UserName:   w.User.Name,
		UserAvatar: w.User.Avatar,
		CreatedAt:  w.CreatedAt,
	}
}

// Playlist is a named list of tracks.
type Playlist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	IsPublic    bool         `json:"isPublic"`
	OwnerID     string       `json:"ownerId"`
	OwnerName   string       `json:"ownerName,omitempty"`
	PlayCount   int          `json:"playCount"`
	Songs       []core.Track `json:"songs"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
}

// TotalDuration sums the songs' real durations.
func (p *Playlist) TotalDuration() time.Duration {
	return core.SumDurations(p.Songs)
}

type wirePlaylist struct {
	ID          string      `json:"id"`
	OID         string      `json:"_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	IsPublic    bool        `json:"isPublic"`
	UserID      ref         `json:"userId"`
	Owner       ref         `json:"owner"`
	PlayCount   int         `json:"playCount"`
	Songs       []wireTrack `json:"songs"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (w wirePlaylist) toPlaylist() Playlist {
	owner := w.Owner
	if owner.ID == "" {
		owner = w.UserID
	}
	return Playlist{
		ID:          canonicalID("", w.OID, w.ID),
		Name:        w.Name,
		Description: w.Description,
		ImageURL:    w.Image,
		IsPublic:    w.IsPublic,
		OwnerID:     owner.ID,
		OwnerName:   owner.Name,
		PlayCount:   w.PlayCount,
		Songs:       tracksToCore(w.Songs),
		CreatedAt:   w.CreatedAt,
	}
}

// TrackQuery filters GET /tracks.
type TrackQuery struct {
	Source    string
	Search    string
	Genre     string
	Limit     int
	Page      int
	SortBy    string
	SortOrder string
	Status    string
}

// TrackPage is one page of tracks.
type TrackPage struct {
	Tracks     []core.Track `json:"tracks"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
	Page       int          `json:"page"`
	Count      int          `json:"count"`
}

// LikeResult is the server's answer to a like toggle.
type LikeResult struct {
	IsLiked   bool `json:"isLiked"`
	LikeCount int  `json:"likeCount"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Credentials are login credentials.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is a new account.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate changes profile fields; empty fields are omitted.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// TrackUpdate changes track fields; nil fields are omitted.
type TrackUpdate struct {
	Title    *string `json:"title,omitempty"`
	Artist   *string `json:"artist,omitempty"`
	Album    *string `json:"album,omitempty"`
	Genre    *string `json:"genre,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// PlaylistInput creates or updates a playlist.
type PlaylistInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	IsPublic    *bool  `json:"isPublic,omitempty"`
}

// UserQuery filters GET /admin/users.
type UserQuery struct {
	Search string
	Role   string
	Status string
	Page   int
	Limit  int
}

// UserPage is one page of users.
type UserPage struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	Page       int    `json:"page"`
}
