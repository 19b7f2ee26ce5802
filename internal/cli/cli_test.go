package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/audio"
	"github.com/tessro/cadence/internal/core"
	"github.com/tessro/cadence/internal/tail"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"Sơn Tùng M-TP", 8, "Sơn T..."},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatProgress(t *testing.T) {
	if got := FormatProgress(30*time.Second, time.Minute, 10); got != "━━━━━─────" {
		t.Errorf("FormatProgress(half) = %q", got)
	}
	if got := FormatProgress(0, 0, 4); got != "────" {
		t.Errorf("FormatProgress(no duration) = %q", got)
	}
	if got := FormatProgress(2*time.Minute, time.Minute, 4); got != "━━━━" {
		t.Errorf("FormatProgress(overflow) = %q", got)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    any
		wantErr bool
	}{
		{"api.base_url", "https://x.test/api", "https://x.test/api", false},
		{"api.retries", "5", int64(5), false},
		{"api.retries", "five", nil, true},
		{"playback.volume", "0.4", 0.4, false},
		{"playback.shuffle", "true", true, false},
		{"playback.shuffle", "maybe", nil, true},
		{"spotify.client_id", "x", nil, true},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseValue(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseValue(%q, %q) = %#v, want %#v", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nbase_url = \"http://localhost:4000/api\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := setKey(path, "playback.repeat", "all"); err != nil {
		t.Fatalf("setKey() error = %v", err)
	}

	var raw map[string]map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["playback"]["repeat"] != "all" {
		t.Errorf("playback.repeat = %v", raw["playback"]["repeat"])
	}
	if raw["api"]["base_url"] != "http://localhost:4000/api" {
		t.Error("existing key lost")
	}

	if err := setKey(path, "storage.backend", "floppy"); err == nil {
		t.Error("setKey() accepted an invalid backend")
	}
}

func TestParseActive(t *testing.T) {
	for in, want := range map[string]bool{"active": true, "inactive": false, "true": true, "0": false} {
		got, err := parseActive(in)
		if err != nil || got != want {
			t.Errorf("parseActive(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseActive("sometimes"); err == nil {
		t.Error("parseActive accepted garbage")
	}
}

func TestUploadFromFile(t *testing.T) {
	defer func() { trackTitle, trackArtist = "", "" }()

	info := audio.Info{Title: "Tagged", Artist: "Band", Duration: 90 * time.Second}
	up := uploadFromFile(info, "/music/file.mp3")
	if up.Title != "Tagged" || up.Artist != "Band" || up.Duration != 90 {
		t.Errorf("upload = %+v", up)
	}

	up = uploadFromFile(audio.Info{}, "/music/No Tags.flac")
	if up.Title != "No Tags" {
		t.Errorf("Title = %q, want file name", up.Title)
	}

	trackArtist = "Override"
	up = uploadFromFile(info, "/music/file.mp3")
	if up.Artist != "Override" {
		t.Errorf("Artist = %q, flag should win", up.Artist)
	}
}

func TestApplyLikesContinuesPastFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/missing/") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"Track not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"isLiked":true,"likeCount":3}}`))
	}))
	defer srv.Close()

	c := api.New(srv.URL, api.WithRetries(0))
	res := applyLikes(context.Background(), c, []string{"a", "missing", "b"}, true)

	if len(res.Data) != 2 {
		t.Errorf("liked %d tracks, want 2", len(res.Data))
	}
	if !res.HasErrors() || len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want one", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Error(), "missing") {
		t.Errorf("error %q does not name the track", res.Errors[0])
	}
}

func TestToEventJSON(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := &core.PlaybackState{
		Track:    &core.Track{ID: "a", Title: "Song"},
		Progress: 65 * time.Second,
		Volume:   0.5,
	}
	got := toEventJSON(tail.Event{Type: tail.EventError, Timestamp: now, Current: st, Err: errors.New("boom")})

	if got.Type != "error" || got.Position != "1:05" || got.Error != "boom" || got.Track.ID != "a" {
		t.Errorf("toEventJSON() = %+v", got)
	}
}

func TestSessionOver(t *testing.T) {
	idle := &core.PlaybackState{Transport: core.TransportIdle}
	playing := &core.PlaybackState{Transport: core.TransportPlaying}

	tests := []struct {
		name string
		e    tail.Event
		want bool
	}{
		{"queue end", tail.Event{Type: tail.EventQueueEnd, Current: playing}, true},
		{"error to idle", tail.Event{Type: tail.EventError, Current: idle, Err: errors.New("timeout")}, true},
		{"error while playing", tail.Event{Type: tail.EventError, Current: playing, Err: errors.New("like failed")}, false},
		{"error without state", tail.Event{Type: tail.EventError}, false},
		{"track change", tail.Event{Type: tail.EventTrackChange, Current: idle}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionOver(tt.e); got != tt.want {
				t.Errorf("sessionOver() = %v, want %v", got, tt.want)
			}
		})
	}
}
