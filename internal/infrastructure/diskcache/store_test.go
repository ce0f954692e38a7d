package diskcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

type teamRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := teamRecord{ID: "t1", Name: "Arsenal"}
	if err := s.Save("team", "t1", in); err != nil {
		t.Fatalf("save: %v", err)
	}

	var out teamRecord
	ts, ok := s.Load("team", "t1", &out)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
	if ts == 0 {
		t.Fatal("expected nonzero timestamp")
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)

	var out teamRecord
	if _, ok := s.Load("team", "absent", &out); ok {
		t.Fatal("expected miss for absent id")
	}
}

func TestStore_LoadCorruptFileTreatedAsMiss(t *testing.T) {
	s := newTestStore(t)

	path := s.path("team", "t1")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	var out teamRecord
	if _, ok := s.Load("team", "t1", &out); ok {
		t.Fatal("expected miss for corrupt file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected corrupt file to be removed")
	}
}

func TestStore_SaveAsyncDrainedByClose(t *testing.T) {
	s := newTestStore(t)

	s.SaveAsync("team", "t1", teamRecord{ID: "t1", Name: "Chelsea"})
	s.Close()

	var out teamRecord
	if _, ok := s.Load("team", "t1", &out); !ok {
		t.Fatal("expected hit after close drained writes")
	}
	if out.Name != "Chelsea" {
		t.Fatalf("got %q", out.Name)
	}
}

func TestStore_SweepRemovesExpired(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	if err := s.Save("team", "old", teamRecord{ID: "old"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	if err := s.Save("team", "fresh", teamRecord{ID: "fresh"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if removed := s.Sweep(time.Hour); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	var out teamRecord
	if _, ok := s.Load("team", "old", &out); ok {
		t.Fatal("expected expired entry gone")
	}
	if _, ok := s.Load("team", "fresh", &out); !ok {
		t.Fatal("expected fresh entry kept")
	}
}

func TestStore_PathUsesKindAndHashedID(t *testing.T) {
	s := newTestStore(t)

	got := s.path("team", "abc")
	base := filepath.Base(got)
	// md5("abc")
	want := "team_900150983cd24fb0d6963f7d28e17f72.json"
	if base != want {
		t.Fatalf("path base = %q, want %q", base, want)
	}
}
