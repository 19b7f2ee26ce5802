package core

import "time"

// Queue represents a playback queue.
type Queue struct {
	Tracks       []Track `json:"tracks"`
	CurrentIndex int     `json:"current_index"`
}

// Current returns the currently playing track, or nil if the queue is empty.
func (q *Queue) Current() *Track {
	if q == nil || len(q.Tracks) == 0 || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Tracks) {
		return nil
	}
	return &q.Tracks[q.CurrentIndex]
}

// Upcoming returns tracks after the current position.
func (q *Queue) Upcoming() []Track {
	if q == nil || len(q.Tracks) == 0 || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Tracks)-1 {
		return nil
	}
	return q.Tracks[q.CurrentIndex+1:]
}

// Len returns the total number of tracks in the queue.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// IsLast reports whether the pointer is on the final entry.
func (q *Queue) IsLast() bool {
	return q.IsEmpty() || q.CurrentIndex >= len(q.Tracks)-1
}

// Intn returns a uniform random int in [0, n). math/rand.Intn satisfies it.
type Intn func(n int) int

// NextIndex returns the index that follows the current one.
// With shuffle, a random index other than the current one is chosen; a
// single-entry queue always yields the current index.
func (q *Queue) NextIndex(shuffle bool, rnd Intn) int {
	n := q.Len()
	if n == 0 {
		return 0
	}
	if shuffle {
		return q.shuffledIndex(rnd)
	}
	return (q.CurrentIndex + 1) % n
}

// PrevIndex mirrors NextIndex in the backward direction.
func (q *Queue) PrevIndex(shuffle bool, rnd Intn) int {
	n := q.Len()
	if n == 0 {
		return 0
	}
	if shuffle {
		return q.shuffledIndex(rnd)
	}
	return (q.CurrentIndex - 1 + n) % n
}

// shuffledIndex draws from the n-1 indices that differ from the current one,
// so it never has to retry.
func (q *Queue) shuffledIndex(rnd Intn) int {
	n := q.Len()
	if n <= 1 {
		return q.CurrentIndex
	}
	i := rnd(n - 1)
	if i >= q.CurrentIndex {
		i++
	}
	return i
}

// Add appends a track.
func (q *Queue) Add(t Track) {
	q.Tracks = append(q.Tracks, t)
}

// Remove deletes the entry at index i and keeps CurrentIndex on the same
// logical track. Out-of-range indices are ignored.
func (q *Queue) Remove(i int) bool {
	if i < 0 || i >= len(q.Tracks) {
		return false
	}
	q.Tracks = append(q.Tracks[:i:i], q.Tracks[i+1:]...)

	switch {
	case len(q.Tracks) == 0:
		q.CurrentIndex = 0
	case i < q.CurrentIndex:
		q.CurrentIndex--
	case q.CurrentIndex >= len(q.Tracks):
		q.CurrentIndex = len(q.Tracks) - 1
	}
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.Tracks = nil
	q.CurrentIndex = 0
}

// Clone returns a deep copy safe to hand to readers.
func (q *Queue) Clone() Queue {
	if q == nil {
		return Queue{}
	}
	tracks := make([]Track, len(q.Tracks))
	copy(tracks, q.Tracks)
	return Queue{Tracks: tracks, CurrentIndex: q.CurrentIndex}
}

// TotalDuration sums the real durations of all tracks.
func (q *Queue) TotalDuration() time.Duration {
	return SumDurations(q.Tracks)
}

// SumDurations sums track durations.
func SumDurations(tracks []Track) time.Duration {
	var total time.Duration
	for _, t := range tracks {
		total += t.Duration
	}
	return total
}
