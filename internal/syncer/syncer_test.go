package syncer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rishabhcli/cardgenie/internal/storage"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestSyncer(t *testing.T) (*Syncer, *storage.Store, string) {
	t.Helper()
	tmp := t.TempDir()
	store, err := storage.Open(filepath.Join(tmp, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	s := New(store, filepath.Join(tmp, "repos"))
	s.clock = func() time.Time { return now }

	deckDir := filepath.Join(tmp, "decks")
	if err := os.MkdirAll(deckDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	return s, store, deckDir
}

func writeDeck(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRunInsertsNewCards(t *testing.T) {
	s, store, deckDir := newTestSyncer(t)
	writeDeck(t, deckDir, "go.md", "Q: What is a goroutine?\nA: A lightweight thread\n---\nQ: What is a channel?\nA: A typed conduit\n")

	if _, err := store.InsertSource(deckDir, KindLocal); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := store.ListEntries()
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if !e.Record.IsNew() {
			t.Errorf("synced card %q should start New", e.Card.Front)
		}
		if !e.Record.NextReviewAt.Equal(now) {
			t.Errorf("NextReviewAt = %v, want %v", e.Record.NextReviewAt, now)
		}
	}

	src, err := store.FindSourceByPath(deckDir)
	if err != nil {
		t.Fatalf("FindSourceByPath: %v", err)
	}
	if !src.LastSynced.Valid {
		t.Error("source should be stamped after sync")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	s, store, deckDir := newTestSyncer(t)
	writeDeck(t, deckDir, "go.md", "Q: front\nA: back\n")
	if _, err := store.InsertSource(deckDir, KindLocal); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Run(context.Background()); err != nil {
			t.Fatalf("Run #%d: %v", i+1, err)
		}
	}

	entries, err := store.ListEntries()
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1 after repeated syncs", len(entries))
	}
}

func TestRunPrunesOrphans(t *testing.T) {
	s, store, deckDir := newTestSyncer(t)
	writeDeck(t, deckDir, "go.md", "Q: keep\nA: me\n---\nQ: drop\nA: me\n")
	if _, err := store.InsertSource(deckDir, KindLocal); err != nil {
		t.Fatalf("InsertSource: %v", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// The second card disappears from the deck file.
	writeDeck(t, deckDir, "go.md", "Q: keep\nA: me\n")
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	entries, err := store.ListEntries()
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 after prune", len(entries))
	}
	if entries[0].Card.Front != "keep" {
		t.Errorf("surviving card = %q, want %q", entries[0].Card.Front, "keep")
	}
}

func TestRunNoSources(t *testing.T) {
	s, _, _ := newTestSyncer(t)
	if err := s.Run(context.Background()); err != nil {
		t.Errorf("Run with no sources: %v", err)
	}
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/me/decks", KindLocal},
		{"decks", KindLocal},
		{"https://example.com/me/decks.git", KindGit},
		{"git@example.com:me/decks.git", KindGit},
		{"http://example.com/me/decks", KindGit},
	}
	for _, tc := range tests {
		if got := DetectKind(tc.path); got != tc.want {
			t.Errorf("DetectKind(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/me/decks.git", filepath.Join("base", "example.com", "me", "decks")},
		{"git@example.com:me/decks.git", filepath.Join("base", "example.com", "me", "decks")},
	}
	for _, tc := range tests {
		got, err := gitURLToLocalPath("base", tc.url)
		if err != nil {
			t.Fatalf("gitURLToLocalPath(%q): %v", tc.url, err)
		}
		if got != tc.want {
			t.Errorf("gitURLToLocalPath(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}

	if _, err := gitURLToLocalPath("base", "not a url"); err == nil {
		t.Error("expected error for unparseable URL")
	}
}
