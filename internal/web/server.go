// Package web exposes the review API over HTTP: study sessions, the due
// queue, review submission, and deck statistics. It is a thin JSON layer;
// all scheduling decisions live in the sm2, session, and stats packages.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rishabhcli/cardgenie/internal/config"
	"github.com/rishabhcli/cardgenie/internal/session"
	"github.com/rishabhcli/cardgenie/internal/sm2"
	"github.com/rishabhcli/cardgenie/internal/stats"
	"github.com/rishabhcli/cardgenie/internal/storage"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	store  *storage.Store
	router *http.ServeMux
	caps   config.SessionConfig
	// clock is injected so handlers are deterministic under test.
	clock func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(store *storage.Store, caps config.SessionConfig) *Server {
	s := &Server{
		store:  store,
		router: http.NewServeMux(),
		caps:   caps,
		clock:  time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/session", s.handleGetSession())
	s.router.HandleFunc("/queue", s.handleGetQueue())
	s.router.HandleFunc("/stats", s.handleGetStats())
	s.router.HandleFunc("/review/", s.handlePostReview())
	s.router.HandleFunc("/cards/", s.handleGetCard())
}

// sessionCard is one card in a study session response.
type sessionCard struct {
	ID    string `json:"id"`
	Front string `json:"front"`
}

// handleGetSession returns the cards for one study session: due first,
// then new, subject to the configured (or query-supplied) caps.
func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		maxNew := queryInt(r, "new", s.caps.MaxNew)
		maxReview := queryInt(r, "review", s.caps.MaxReview)

		entries, byID, err := s.loadEntries()
		if err != nil {
			s.internalError(w, "load cards", err)
			return
		}

		ids := session.Build(entries, maxNew, maxReview, s.clock())
		cards := make([]sessionCard, 0, len(ids))
		for _, id := range ids {
			cards = append(cards, sessionCard{ID: id, Front: byID[id].Card.Front})
		}
		writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
	}
}

// handleGetQueue returns every due card id, earliest-overdue first, plus
// the study-time estimate reminder consumers display.
func (s *Server) handleGetQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		entries, _, err := s.loadEntries()
		if err != nil {
			s.internalError(w, "load cards", err)
			return
		}
		due := session.DueQueue(entries, s.clock())
		writeJSON(w, http.StatusOK, map[string]any{
			"card_ids":          due,
			"due_count":         len(due),
			"estimated_minutes": stats.EstimateStudyMinutes(len(due)),
		})
	}
}

// handleGetStats returns collection-wide rollups.
func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		entries, _, err := s.loadEntries()
		if err != nil {
			s.internalError(w, "load cards", err)
			return
		}
		records := make([]sm2.MemoryRecord, len(entries))
		for i, e := range entries {
			records[i] = e.Record
		}
		due := session.DueQueue(entries, s.clock())
		writeJSON(w, http.StatusOK, map[string]any{
			"cards":             len(records),
			"due_count":         len(due),
			"total_reviews":     stats.TotalReviews(records),
			"success_rate":      stats.SetSuccessRate(records),
			"average_ease":      stats.AverageEase(records),
			"estimated_minutes": stats.EstimateStudyMinutes(len(due)),
		})
	}
}

// reviewRequest is the body of POST /review/{id}.
type reviewRequest struct {
	Response sm2.Response `json:"response"`
}

// handlePostReview applies one review and returns the updated record.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/review/")
		if id == "" {
			http.Error(w, "missing card id", http.StatusBadRequest)
			return
		}

		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad review body: "+err.Error(), http.StatusBadRequest)
			return
		}

		rec, err := s.store.ApplyReview(id, req.Response, s.clock())
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.internalError(w, "apply review", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": rec})
	}
}

// handleGetCard returns a card with its record and classification.
func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/cards/")
		entry, err := s.store.FindCard(id)
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.internalError(w, "find card", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"card":           entry.Card,
			"record":         entry.Record,
			"classification": entry.Record.Classify(s.clock()).String(),
		})
	}
}

// loadEntries reads all cards once and returns both the ordered session
// input and an id lookup.
func (s *Server) loadEntries() ([]session.Entry, map[string]storage.Entry, error) {
	stored, err := s.store.ListEntries()
	if err != nil {
		return nil, nil, err
	}
	entries := make([]session.Entry, len(stored))
	byID := make(map[string]storage.Entry, len(stored))
	for i, e := range stored {
		entries[i] = session.Entry{CardID: e.Card.ID, Record: e.Record}
		byID[e.Card.ID] = e
	}
	return entries, byID, nil
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	slog.Error(what, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
