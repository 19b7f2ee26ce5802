package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tessro/cadence/internal/core"
)

// File is one file part of a multipart upload.
type File struct {
	Name   string
	Reader io.Reader
}

// TrackUpload is a new audio upload. Empty fields are not sent.
type TrackUpload struct {
	Audio    File
	Image    *File
	Title    string
	Artist   string
	Album    string
	Genre    string
	Tags     string
	Duration float64
}

type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil || value == "" {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(field string, file File) {
	if f.err != nil {
		return
	}
	part, err := f.w.CreateFormFile(field, file.Name)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = io.Copy(part, file.Reader)
}

func (f *form) close() ([]byte, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("failed to build upload: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to build upload: %w", err)
	}
	return f.buf.Bytes(), f.w.FormDataContentType(), nil
}

// upload posts a multipart body. Uploads are never retried.
func (c *Client) upload(ctx context.Context, path string, f *form) (*envelope, error) {
	body, contentType, err := f.close()
	if err != nil {
		return nil, err
	}
	return c.do(ctx, call{
		method:      http.MethodPost,
		path:        path,
		raw:         body,
		contentType: contentType,
		noRetry:     true,
	})
}

// UploadTrack uploads an audio file. New uploads start pending moderation.
func (c *Client) UploadTrack(ctx context.Context, up TrackUpload) (*core.Track, error) {
	if up.Audio.Reader == nil {
		return nil, fmt.Errorf("upload requires an audio file")
	}
	f := newForm()
	f.file("file", up.Audio)
	if up.Image != nil {
		f.file("image", *up.Image)
	}
	f.field("title", up.Title)
	f.field("artist", up.Artist)
	f.field("album", up.Album)
	f.field("genre", up.Genre)
	f.field("tags", up.Tags)
	if up.Duration > 0 {
		f.field("duration", strconv.FormatFloat(up.Duration, 'f', 0, 64))
	}

	env, err := c.upload(ctx, "/uploads/tracks", f)
	if err != nil {
		return nil, err
	}
	return decodeTrack(env)
}

// UploadTrackImage replaces a track's cover image.
func (c *Client) UploadTrackImage(ctx context.Context, trackID string, img File) (*core.Track, error) {
	f := newForm()
	f.file("image", img)
	env, err := c.upload(ctx, "/uploads/track/"+url.PathEscape(trackID)+"/image", f)
	if err != nil {
		return nil, err
	}
	return decodeTrack(env)
}

// UploadPlaylistImage replaces a playlist's cover image.
func (c *Client) UploadPlaylistImage(ctx context.Context, playlistID string, img File) (*Playlist, error) {
	f := newForm()
	f.file("image", img)
	env, err := c.upload(ctx, "/uploads/playlist/"+url.PathEscape(playlistID)+"/image", f)
	if err != nil {
		return nil, err
	}
	return decodePlaylist(env)
}

// UploadAvatar replaces the authenticated user's avatar.
func (c *Client) UploadAvatar(ctx context.Context, img File) (*User, error) {
	f := newForm()
	f.file("avatar", img)
	env, err := c.upload(ctx, "/uploads/avatar", f)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}
