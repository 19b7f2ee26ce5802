package core

import (
	"math/rand"
	"testing"
	"time"
)

func tracks(ids ...string) []Track {
	out := make([]Track, len(ids))
	for i, id := range ids {
		out[i] = Track{ID: id, Title: "Song " + id, Duration: time.Duration(i+1) * time.Minute}
	}
	return out
}

func TestQueueNextPrevIndex(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		current int
		next    int
		prev    int
	}{
		{"middle", 3, 1, 2, 0},
		{"wrap forward", 3, 2, 0, 1},
		{"wrap backward", 3, 0, 1, 2},
		{"single", 1, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.n)
			for i := range ids {
				ids[i] = string(rune('a' + i))
			}
			q := Queue{Tracks: tracks(ids...), CurrentIndex: tt.current}
			if got := q.NextIndex(false, rand.Intn); got != tt.next {
				t.Errorf("NextIndex() = %d, want %d", got, tt.next)
			}
			if got := q.PrevIndex(false, rand.Intn); got != tt.prev {
				t.Errorf("PrevIndex() = %d, want %d", got, tt.prev)
			}
		})
	}
}

func TestQueueShuffleNeverRepeatsCurrent(t *testing.T) {
	q := Queue{Tracks: tracks("a", "b", "c", "d"), CurrentIndex: 2}
	rng := rand.New(rand.NewSource(7))

	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		got := q.NextIndex(true, rng.Intn)
		if got == q.CurrentIndex {
			t.Fatalf("NextIndex(shuffle) returned current index %d", got)
		}
		if got < 0 || got >= q.Len() {
			t.Fatalf("NextIndex(shuffle) = %d out of range", got)
		}
		seen[got] = true
	}
	if len(seen) != 3 {
		t.Errorf("shuffle visited %d distinct indices, want 3", len(seen))
	}
}

func TestQueueShuffleSingleEntry(t *testing.T) {
	q := Queue{Tracks: tracks("a")}
	calls := 0
	rnd := func(n int) int {
		calls++
		return 0
	}
	if got := q.NextIndex(true, rnd); got != 0 {
		t.Errorf("NextIndex() = %d, want 0", got)
	}
	if got := q.PrevIndex(true, rnd); got != 0 {
		t.Errorf("PrevIndex() = %d, want 0", got)
	}
	if calls != 0 {
		t.Errorf("random source called %d times for single-entry queue", calls)
	}
}

func TestQueueRemove(t *testing.T) {
	tests := []struct {
		name      string
		current   int
		remove    int
		wantIndex int
		wantID    string
		wantOK    bool
	}{
		{"before current", 2, 0, 1, "c", true},
		{"after current", 1, 2, 1, "b", true},
		{"current middle", 1, 1, 1, "c", true},
		{"current last", 2, 2, 1, "b", true},
		{"out of range", 1, 5, 1, "b", false},
		{"negative", 1, -1, 1, "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Queue{Tracks: tracks("a", "b", "c"), CurrentIndex: tt.current}
			if ok := q.Remove(tt.remove); ok != tt.wantOK {
				t.Fatalf("Remove() = %v, want %v", ok, tt.wantOK)
			}
			if q.CurrentIndex != tt.wantIndex {
				t.Errorf("CurrentIndex = %d, want %d", q.CurrentIndex, tt.wantIndex)
			}
			if cur := q.Current(); cur == nil || cur.ID != tt.wantID {
				t.Errorf("Current() = %v, want %s", cur, tt.wantID)
			}
		})
	}
}

func TestQueueRemoveLastEntry(t *testing.T) {
	q := Queue{Tracks: tracks("a")}
	q.Remove(0)
	if !q.IsEmpty() || q.CurrentIndex != 0 {
		t.Errorf("after removing only entry: len=%d index=%d", q.Len(), q.CurrentIndex)
	}
	if q.Current() != nil {
		t.Error("Current() should be nil for empty queue")
	}
}

func TestQueueIndexInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	q := Queue{}
	for step := 0; step < 2000; step++ {
		switch rng.Intn(4) {
		case 0:
			q.Add(Track{ID: "x"})
		case 1:
			if q.Len() > 0 {
				q.Remove(rng.Intn(q.Len()))
			}
		case 2:
			q.CurrentIndex = q.NextIndex(rng.Intn(2) == 0, rng.Intn)
		case 3:
			q.CurrentIndex = q.PrevIndex(rng.Intn(2) == 0, rng.Intn)
		}
		if q.Len() > 0 && (q.CurrentIndex < 0 || q.CurrentIndex >= q.Len()) {
			t.Fatalf("step %d: CurrentIndex %d outside [0,%d)", step, q.CurrentIndex, q.Len())
		}
		if q.Len() == 0 && q.CurrentIndex != 0 {
			t.Fatalf("step %d: empty queue with CurrentIndex %d", step, q.CurrentIndex)
		}
	}
}

func TestQueueUpcomingAndDuration(t *testing.T) {
	q := Queue{Tracks: tracks("a", "b", "c"), CurrentIndex: 0}
	if got := len(q.Upcoming()); got != 2 {
		t.Errorf("Upcoming() len = %d, want 2", got)
	}
	if got := q.TotalDuration(); got != 6*time.Minute {
		t.Errorf("TotalDuration() = %v, want 6m", got)
	}
	q.CurrentIndex = 2
	if !q.IsLast() {
		t.Error("IsLast() = false on final entry")
	}
}

func TestRepeatModeCycle(t *testing.T) {
	r := RepeatOff
	want := []RepeatMode{RepeatAll, RepeatOne, RepeatOff}
	for i, w := range want {
		r = r.Next()
		if r != w {
			t.Errorf("step %d: Next() = %v, want %v", i, r, w)
		}
	}
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name    string
		track   Track
		base    string
		want    string
		wantErr bool
	}{
		{"absolute url", Track{AudioURL: "https://cdn.example.com/a.mp3"}, "http://x", "https://cdn.example.com/a.mp3", false},
		{"file path rooted", Track{FilePath: "uploads/a.mp3"}, "", "/uploads/a.mp3", false},
		{"file path with base", Track{FilePath: "uploads/a.mp3"}, "http://localhost:4000", "http://localhost:4000/uploads/a.mp3", false},
		{"audio preferred", Track{AudioURL: "/a.mp3", FilePath: "/b.mp3"}, "", "/a.mp3", false},
		{"no source", Track{Title: "x", Artist: "y"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.track.ResolveSource(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveSource() = %q, want %q", got, tt.want)
			}
		})
	}
}
