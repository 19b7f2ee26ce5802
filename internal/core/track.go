package core

import (
	"net/url"
	"strings"
	"time"

	cerrors "github.com/tessro/cadence/internal/errors"
)

// TrackStatus is the moderation status of an uploaded track.
type TrackStatus string

const (
	TrackPending  TrackStatus = "pending"
	TrackApproved TrackStatus = "approved"
	TrackRejected TrackStatus = "rejected"
)

// Track represents a playable audio track.
type Track struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Artist       string        `json:"artist"`
	Album        string        `json:"album,omitempty"`
	Genre        string        `json:"genre,omitempty"`
	AudioURL     string        `json:"audio_url,omitempty"`
	FilePath     string        `json:"file_path,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	Duration     time.Duration `json:"duration"`
	LikeCount    int           `json:"like_count"`
	PlayCount    int           `json:"play_count"`
	CommentCount int           `json:"comment_count"`
	IsLiked      bool          `json:"is_liked"`
	Status       TrackStatus   `json:"status,omitempty"`
	UploadedBy   string        `json:"uploaded_by,omitempty"`
}

// HasSource reports whether the track carries any audio locator.
func (t *Track) HasSource() bool {
	return t != nil && (t.AudioURL != "" || t.FilePath != "")
}

// ResolveSource returns the locator the audio element should load.
// Absolute URLs are returned as-is; paths are rooted and, when base is
// non-empty, resolved against it.
func (t *Track) ResolveSource(base string) (string, error) {
	if !t.HasSource() {
		return "", cerrors.ErrNoAudioSource
	}

	src := t.AudioURL
	if src == "" {
		src = t.FilePath
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src, nil
	}
	if !strings.HasPrefix(src, "/") {
		src = "/" + src
	}
	if base == "" {
		return src, nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return src, nil
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", cerrors.ErrNoAudioSource
	}
	return b.ResolveReference(ref).String(), nil
}

// DisplayArtist returns the artist or a placeholder.
func (t *Track) DisplayArtist() string {
	if t.Artist == "" {
		return "Unknown Artist"
	}
	return t.Artist
}
