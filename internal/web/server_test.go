package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rishabhcli/cardgenie/internal/config"
	"github.com/rishabhcli/cardgenie/internal/deck"
	"github.com/rishabhcli/cardgenie/internal/domain"
	"github.com/rishabhcli/cardgenie/internal/sm2"
	"github.com/rishabhcli/cardgenie/internal/storage"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	s := NewServer(store, config.SessionConfig{MaxNew: 10, MaxReview: 50})
	s.clock = func() time.Time { return now }
	return s, store
}

func addCard(t *testing.T, store *storage.Store, front, back string, at time.Time) domain.Card {
	t.Helper()
	c := domain.Card{Front: front, Back: back}
	c.ID = deck.ID(c)
	if err := store.InsertCard(c, 0, at); err != nil {
		t.Fatalf("InsertCard: %v", err)
	}
	return c
}

func doJSON(t *testing.T, s *Server, method, target, body string, wantStatus int) map[string]any {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d (body %s)", method, target, rec.Code, wantStatus, rec.Body)
	}
	if wantStatus != http.StatusOK {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGetSessionEmptyDeck(t *testing.T) {
	s, _ := newTestServer(t)
	out := doJSON(t, s, http.MethodGet, "/session", "", http.StatusOK)
	cards := out["cards"].([]any)
	if len(cards) != 0 {
		t.Errorf("cards = %v, want empty session", cards)
	}
}

func TestSessionDueBeforeNew(t *testing.T) {
	s, store := newTestServer(t)
	newCard := addCard(t, store, "brand new", "b", now)
	dueCard := addCard(t, store, "seen before", "b", now.Add(-72*time.Hour))
	if _, err := store.ApplyReview(dueCard.ID, sm2.Good, now.Add(-72*time.Hour)); err != nil {
		t.Fatalf("ApplyReview: %v", err)
	}

	out := doJSON(t, s, http.MethodGet, "/session", "", http.StatusOK)
	cards := out["cards"].([]any)
	if len(cards) != 2 {
		t.Fatalf("len(cards) = %d, want 2", len(cards))
	}
	first := cards[0].(map[string]any)
	second := cards[1].(map[string]any)
	if first["id"] != dueCard.ID {
		t.Errorf("first card = %v, want the due card", first)
	}
	if second["id"] != newCard.ID {
		t.Errorf("second card = %v, want the new card", second)
	}
}

func TestSessionCapsFromQuery(t *testing.T) {
	s, store := newTestServer(t)
	for i := 0; i < 5; i++ {
		addCard(t, store, "card", string(rune('a'+i)), now)
	}

	out := doJSON(t, s, http.MethodGet, "/session?new=2&review=0", "", http.StatusOK)
	cards := out["cards"].([]any)
	if len(cards) != 2 {
		t.Errorf("len(cards) = %d, want 2 (capped)", len(cards))
	}
}

func TestGetQueue(t *testing.T) {
	s, store := newTestServer(t)
	overdue := addCard(t, store, "overdue", "b", now.Add(-48*time.Hour))
	if _, err := store.ApplyReview(overdue.ID, sm2.Good, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("ApplyReview: %v", err)
	}
	addCard(t, store, "new one", "b", now) // never in the queue

	out := doJSON(t, s, http.MethodGet, "/queue", "", http.StatusOK)
	if got := out["due_count"].(float64); got != 1 {
		t.Errorf("due_count = %v, want 1", got)
	}
	if got := out["estimated_minutes"].(float64); got != 0.5 {
		t.Errorf("estimated_minutes = %v, want 0.5", got)
	}
	ids := out["card_ids"].([]any)
	if len(ids) != 1 || ids[0] != overdue.ID {
		t.Errorf("card_ids = %v, want [%s]", ids, overdue.ID)
	}
}

func TestPostReview(t *testing.T) {
	s, store := newTestServer(t)
	card := addCard(t, store, "front", "back", now)

	out := doJSON(t, s, http.MethodPost, "/review/"+card.ID, `{"response":"Good"}`, http.StatusOK)
	record := out["record"].(map[string]any)
	if got := record["review_count"].(float64); got != 1 {
		t.Errorf("review_count = %v, want 1", got)
	}
	if got := record["interval_days"].(float64); got != 1 {
		t.Errorf("interval_days = %v, want 1", got)
	}

	entry, err := store.FindCard(card.ID)
	if err != nil {
		t.Fatalf("FindCard: %v", err)
	}
	if entry.Record.ReviewCount != 1 {
		t.Errorf("persisted ReviewCount = %d, want 1", entry.Record.ReviewCount)
	}
}

func TestPostReviewValidation(t *testing.T) {
	s, store := newTestServer(t)
	card := addCard(t, store, "front", "back", now)

	doJSON(t, s, http.MethodPost, "/review/"+card.ID, `{"response":"Hard"}`, http.StatusBadRequest)
	doJSON(t, s, http.MethodPost, "/review/"+card.ID, `{`, http.StatusBadRequest)
	doJSON(t, s, http.MethodPost, "/review/missing", `{"response":"Good"}`, http.StatusNotFound)
	doJSON(t, s, http.MethodGet, "/review/"+card.ID, "", http.StatusMethodNotAllowed)
}

func TestGetStats(t *testing.T) {
	s, store := newTestServer(t)
	card := addCard(t, store, "front", "back", now.Add(-time.Hour))
	if _, err := store.ApplyReview(card.ID, sm2.Easy, now.Add(-time.Hour)); err != nil {
		t.Fatalf("ApplyReview: %v", err)
	}

	out := doJSON(t, s, http.MethodGet, "/stats", "", http.StatusOK)
	if got := out["total_reviews"].(float64); got != 1 {
		t.Errorf("total_reviews = %v, want 1", got)
	}
	if got := out["success_rate"].(float64); got != 1 {
		t.Errorf("success_rate = %v, want 1", got)
	}
	if got := out["cards"].(float64); got != 1 {
		t.Errorf("cards = %v, want 1", got)
	}
}

func TestGetStatsEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	out := doJSON(t, s, http.MethodGet, "/stats", "", http.StatusOK)
	if got := out["success_rate"].(float64); got != 0 {
		t.Errorf("success_rate = %v, want 0", got)
	}
	if got := out["average_ease"].(float64); got != sm2.DefaultEase {
		t.Errorf("average_ease = %v, want default ease", got)
	}
}

func TestGetCard(t *testing.T) {
	s, store := newTestServer(t)
	card := addCard(t, store, "front", "back", now)

	out := doJSON(t, s, http.MethodGet, "/cards/"+card.ID, "", http.StatusOK)
	if got := out["classification"].(string); got != "New" {
		t.Errorf("classification = %q, want New", got)
	}
	gotCard := out["card"].(map[string]any)
	if gotCard["front"] != "front" {
		t.Errorf("card = %v", gotCard)
	}

	doJSON(t, s, http.MethodGet, "/cards/missing", "", http.StatusNotFound)
}
