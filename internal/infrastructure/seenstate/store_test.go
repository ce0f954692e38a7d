package seenstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := NewStore(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestStore_MarkAndSeen(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	if s.Seen("OU3", "m1") {
		t.Fatal("expected unseen before mark")
	}
	if err := s.MarkFired("OU3", "m1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !s.Seen("OU3", "m1") {
		t.Fatal("expected seen after mark")
	}
	if s.Seen("OU3", "m2") {
		t.Fatal("expected other id unseen")
	}
	if s.Seen("OtherRule", "m1") {
		t.Fatal("expected other rule unseen")
	}
}

func TestStore_StateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	first := newTestStore(t, dir)
	if err := first.MarkFired("OU3", "m1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := first.MarkFired("OU3", "m2"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	second := newTestStore(t, dir)
	if !second.Seen("OU3", "m1") || !second.Seen("OU3", "m2") {
		t.Fatal("expected marks to survive restart")
	}
	if got := second.Count("OU3"); got != 2 {
		t.Fatalf("expected 2 ids, got %d", got)
	}
}

func TestStore_CorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "OU3.seen.json"), []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s := newTestStore(t, dir)
	if s.Seen("OU3", "m1") {
		t.Fatal("expected empty set from corrupt file")
	}

	// marking still works and replaces the corrupt file
	if err := s.MarkFired("OU3", "m1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !newTestStore(t, dir).Seen("OU3", "m1") {
		t.Fatal("expected rewritten file to hold the mark")
	}
}

func TestStore_MarkIsIdempotent(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	for i := 0; i < 3; i++ {
		if err := s.MarkFired("OU3", "m1"); err != nil {
			t.Fatalf("mark: %v", err)
		}
	}
	if got := s.Count("OU3"); got != 1 {
		t.Fatalf("expected 1 id, got %d", got)
	}
}
