package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	sq, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cadence.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sq.Close() })

	stores := map[string]Store{"file": fs, "sqlite": sq}

	// Redis runs only against a live server, e.g. CADENCE_TEST_REDIS=localhost:6379.
	if addr := os.Getenv("CADENCE_TEST_REDIS"); addr != "" {
		rs, err := NewRedisStore(context.Background(), addr, 15)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { rs.Close() })
		stores["redis"] = rs
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, KeyAuthToken); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, KeyAuthToken, []byte("tok-1")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := s.Set(ctx, KeyAuthToken, []byte("tok-2")); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			got, err := s.Get(ctx, KeyAuthToken)
			if err != nil || string(got) != "tok-2" {
				t.Fatalf("Get() = %q, %v; want tok-2", got, err)
			}

			if err := s.Delete(ctx, KeyAuthToken); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, KeyAuthToken); err != nil {
				t.Fatalf("Delete(missing) error = %v", err)
			}
			if _, err := s.Get(ctx, KeyAuthToken); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(deleted) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	type profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := profile{ID: "u1", Name: "Lan"}
			if err := SetJSON(ctx, s, KeyUser, in); err != nil {
				t.Fatal(err)
			}
			var out profile
			if err := GetJSON(ctx, s, KeyUser, &out); err != nil {
				t.Fatal(err)
			}
			if out != in {
				t.Errorf("GetJSON() = %+v, want %+v", out, in)
			}
		})
	}
}

func TestHistoryKey(t *testing.T) {
	if got := HistoryKey("abc"); got != "listeningHistory_abc" {
		t.Errorf("HistoryKey() = %q", got)
	}
	if !IsHistoryKey(HistoryKey("abc")) || IsHistoryKey(KeyUser) {
		t.Error("IsHistoryKey mismatch")
	}
}

func TestFileStorePermissions(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "listeningHistory_u/1", []byte("[]")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want 1", len(entries))
	}
	info, err := entries[0].Info()
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
	if key, ok := s.keyFor(entries[0].Name()); !ok || key != "listeningHistory_u/1" {
		t.Errorf("keyFor() = %q, %v", key, ok)
	}
}

func TestFileStoreWatch(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Set(ctx, KeyLanguage, []byte(`"en"`)); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case key := <-changes:
			if key == KeyLanguage {
				return
			}
		case <-timeout:
			t.Fatal("no change reported for language key")
		}
	}
}
