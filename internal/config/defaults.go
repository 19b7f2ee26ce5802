package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:4000/api",
			Timeout:      15,
			Retries:      3,
			CallbackAddr: "127.0.0.1:8889",
			OAuthPath:    "/auth/google",
		},
		Playback: PlaybackConfig{
			Volume:           0.7,
			Repeat:           "off",
			LoadTimeout:      10,
			SkipSeconds:      10,
			RestartThreshold: 3,
			TickInterval:     250,
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     defaultDataDir(),
		},
		History: HistoryConfig{
			Limit: 20,
		},
		TUI: TUIConfig{
			Theme:           "auto",
			RefreshInterval: 1000,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	// API
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.API.Retries == 0 {
		c.API.Retries = d.API.Retries
	}
	if c.API.CallbackAddr == "" {
		c.API.CallbackAddr = d.API.CallbackAddr
	}
	if c.API.OAuthPath == "" {
		c.API.OAuthPath = d.API.OAuthPath
	}

	// Playback
	if c.Playback.Volume == 0 {
		c.Playback.Volume = d.Playback.Volume
	}
	if c.Playback.Repeat == "" {
		c.Playback.Repeat = d.Playback.Repeat
	}
	if c.Playback.LoadTimeout == 0 {
		c.Playback.LoadTimeout = d.Playback.LoadTimeout
	}
	if c.Playback.SkipSeconds == 0 {
		c.Playback.SkipSeconds = d.Playback.SkipSeconds
	}
	if c.Playback.RestartThreshold == 0 {
		c.Playback.RestartThreshold = d.Playback.RestartThreshold
	}
	if c.Playback.TickInterval == 0 {
		c.Playback.TickInterval = d.Playback.TickInterval
	}

	// Storage
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.Storage.Dir, "cadence.db")
	}

	// History
	if c.History.Limit == 0 {
		c.History.Limit = d.History.Limit
	}

	// TUI
	if c.TUI.Theme == "" {
		c.TUI.Theme = d.TUI.Theme
	}
	if c.TUI.RefreshInterval == 0 {
		c.TUI.RefreshInterval = d.TUI.RefreshInterval
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = d.Log.MaxSize
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = d.Log.MaxAge
	}
}

// MediaBase returns the base URL relative audio paths resolve against.
// It falls back to the API origin with the /api suffix stripped.
func (c *APIConfig) MediaBase() string {
	if c.MediaBaseURL != "" {
		return c.MediaBaseURL
	}
	base := c.BaseURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if len(base) >= 4 && base[len(base)-4:] == "/api" {
		base = base[:len(base)-4]
	}
	return base
}

// RequestTimeout returns the API timeout as a duration.
func (c *APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// LoadTimeoutDuration returns the metadata wait bound.
func (c *PlaybackConfig) LoadTimeoutDuration() time.Duration {
	return time.Duration(c.LoadTimeout) * time.Second
}

// SkipDuration returns the relative seek step.
func (c *PlaybackConfig) SkipDuration() time.Duration {
	return time.Duration(c.SkipSeconds) * time.Second
}

// RestartThresholdDuration returns the elapsed time after which previous
// restarts the current track.
func (c *PlaybackConfig) RestartThresholdDuration() time.Duration {
	return time.Duration(c.RestartThreshold) * time.Second
}

// Tick returns the playback clock interval.
func (c *PlaybackConfig) Tick() time.Duration {
	return time.Duration(c.TickInterval) * time.Millisecond
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "cadence")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadence"
	}
	return filepath.Join(home, ".local", "share", "cadence")
}
