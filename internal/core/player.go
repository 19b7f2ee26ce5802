package core

import (
	"context"
	"time"
)

// Player is the command/query surface presentation code drives.
// State is only ever changed through these methods.
type Player interface {
	// Transport
	PlayTrack(ctx context.Context, track Track, queue []Track, index int) error
	TogglePlayPause()
	Seek(seconds float64)
	SkipForward()
	SkipBack()

	// Queue navigation
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	PlayQueueIndex(ctx context.Context, index int) error

	// Policy
	ToggleShuffle()
	ToggleRepeat()
	SetVolume(v float64)

	// Advisory likes
	ToggleLike(track *Track) bool
	IsLiked(track *Track) bool

	// Queue manipulation
	AddToQueue(track Track)
	RemoveFromQueue(index int)
	ClearQueue()

	// State queries
	State() PlaybackState
}

// HistoryEntry represents a recently played track.
type HistoryEntry struct {
	Track    *Track    `json:"track"`
	PlayedAt time.Time `json:"playedAt"`
}
