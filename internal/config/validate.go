package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tessro/cadence/internal/core"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("api: %w", err))
	}
	if err := c.Playback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("playback: %w", err))
	}
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if err := c.History.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("history: %w", err))
	}
	if err := c.TUI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tui: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks APIConfig for errors.
func (c *APIConfig) Validate() error {
	for name, raw := range map[string]string{"base_url": c.BaseURL, "media_base_url": c.MediaBaseURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid %s: scheme must be http or https", name)
		}
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	if c.Retries < 0 {
		return errors.New("retries must be non-negative")
	}
	return nil
}

// Validate checks PlaybackConfig for errors.
func (c *PlaybackConfig) Validate() error {
	if c.Volume < 0 || c.Volume > 1 {
		return errors.New("volume must be between 0 and 1")
	}
	if _, ok := core.ParseRepeatMode(c.Repeat); !ok {
		return fmt.Errorf("invalid repeat mode: %s (must be off, all, or one)", c.Repeat)
	}
	if c.LoadTimeout < 0 || c.SkipSeconds < 0 || c.RestartThreshold < 0 || c.TickInterval < 0 {
		return errors.New("durations must be non-negative")
	}
	return nil
}

// Validate checks StorageConfig for errors.
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case "", "file", "sqlite":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be file, sqlite, or redis)", c.Backend)
	}
	return nil
}

// Validate checks HistoryConfig for errors.
func (c *HistoryConfig) Validate() error {
	if c.Limit < 0 {
		return errors.New("limit must be non-negative")
	}
	return nil
}

// Validate checks TUIConfig for errors.
func (c *TUIConfig) Validate() error {
	switch c.Theme {
	case "", "auto", "dark", "light":
		// valid
	default:
		return fmt.Errorf("invalid theme: %s (must be auto, dark, or light)", c.Theme)
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
