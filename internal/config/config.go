package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	cerrors "github.com/tessro/cadence/internal/errors"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.cadencerc, $XDG_CONFIG_HOME/cadence/config.toml, ~/.config/cadence/config.toml
// A .env file in the working directory is loaded first so its values
// participate in the CADENCE_* overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Try loading from file
	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", cerrors.ErrInvalidConfig, path, err)
		}
	}

	// Apply defaults, then environment variable overrides
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", cerrors.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", cerrors.ErrInvalidConfig, path, err)
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultPath returns where `cadence config init` writes a new file.
func DefaultPath() (string, error) {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "cadence", "config.toml"), nil
}

// Path returns the config file in use, or "" if none exists.
func Path() string {
	return findConfigFile()
}

// Write encodes cfg as TOML to path, creating parent directories.
func Write(path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".cadencerc"),
	}

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "cadence", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("CADENCE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("CADENCE_MEDIA_URL"); v != "" {
		cfg.API.MediaBaseURL = v
	}
	if v := os.Getenv("CADENCE_API_TIMEOUT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.API.Timeout = i
		}
	}

	// Playback
	if v := os.Getenv("CADENCE_VOLUME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Playback.Volume = f
		}
	}
	if v := os.Getenv("CADENCE_REPEAT"); v != "" {
		cfg.Playback.Repeat = v
	}
	if v := os.Getenv("CADENCE_SHUFFLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Playback.Shuffle = b
		}
	}

	// Storage
	if v := os.Getenv("CADENCE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("CADENCE_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("CADENCE_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}

	// TUI
	if v := os.Getenv("CADENCE_TUI_THEME"); v != "" {
		cfg.TUI.Theme = v
	}

	// Log
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CADENCE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
