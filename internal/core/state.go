package core

import "time"

// Transport is the state of the play/pause/seek machine.
type Transport int

const (
	TransportIdle Transport = iota
	TransportLoading
	TransportPaused
	TransportPlaying
	TransportEnded
)

func (t Transport) String() string {
	switch t {
	case TransportIdle:
		return "idle"
	case TransportLoading:
		return "loading"
	case TransportPaused:
		return "paused"
	case TransportPlaying:
		return "playing"
	case TransportEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// RepeatMode controls what happens when a track ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// Next cycles Off → All → One → Off.
func (r RepeatMode) Next() RepeatMode {
	return (r + 1) % 3
}

func (r RepeatMode) String() string {
	switch r {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch s {
	case "", "off":
		return RepeatOff, true
	case "all", "context":
		return RepeatAll, true
	case "one", "track":
		return RepeatOne, true
	}
	return RepeatOff, false
}

// PlaybackState represents the current playback state.
type PlaybackState struct {
	Transport    Transport       `json:"transport"`
	Track        *Track          `json:"track"`
	IsPlaying    bool            `json:"is_playing"`
	Progress     time.Duration   `json:"progress"`
	Duration     time.Duration   `json:"duration"`
	Volume       float64         `json:"volume"`
	Shuffle      bool            `json:"shuffle"`
	Repeat       RepeatMode      `json:"repeat"`
	Queue        Queue           `json:"queue"`
	LastError    string          `json:"last_error,omitempty"`
	LikedTrackID map[string]bool `json:"-"`
}

// HasTrack returns true if there is an active track.
func (s *PlaybackState) HasTrack() bool {
	return s != nil && s.Track != nil
}

// IsLiked reports whether the advisory like cache holds the track.
func (s *PlaybackState) IsLiked(id string) bool {
	return s != nil && s.LikedTrackID[id]
}

// ProgressPercent returns playback progress as a percentage (0-100).
func (s *PlaybackState) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	return float64(s.Progress) / float64(s.Duration) * 100
}
