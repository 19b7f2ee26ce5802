// Package store persists small pieces of client state (session token,
// cached profile, language, listening history) under string keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tessro/cadence/internal/config"
)

// Fixed keys.
const (
	KeyAuthToken = "authToken"
	KeyUser      = "user"
	KeyLanguage  = "language"

	historyPrefix = "listeningHistory_"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: key not found")

// HistoryKey returns the per-user listening history key.
func HistoryKey(userID string) string {
	return historyPrefix + userID
}

// IsHistoryKey reports whether key holds a listening history.
func IsHistoryKey(key string) bool {
	return strings.HasPrefix(key, historyPrefix)
}

// Store is a string-keyed blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the value at key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// Open returns the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
