// Package storage persists cards, their memory records, and review history
// in SQLite. It is the collection owner: the scheduler itself never touches
// the database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/rishabhcli/cardgenie/internal/domain"
	"github.com/rishabhcli/cardgenie/internal/sm2"
)

// ErrNotFound is returned when a card or source does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store wraps the SQLite connection. Review writes to the same card are
// serialized by a per-card mutex, since applying reviews is neither
// commutative nor idempotent.
type Store struct {
	conn *sql.DB

	mu        sync.Mutex
	cardLocks map[string]*sync.Mutex
}

// Entry is one stored card with its scheduling state.
type Entry struct {
	Card      domain.Card
	Record    sm2.MemoryRecord
	CreatedAt time.Time
}

// Source is a deck origin: a local directory or a git repository URL.
type Source struct {
	ID         int64
	Path       string
	Kind       string // "local" or "git"
	LastSynced sql.NullTime
}

// Open opens (creating if needed) the database at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent reviews.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{conn: conn, cardLocks: make(map[string]*sync.Mutex)}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// InsertCard stores a new card with a default memory record: immediately
// due, default ease, never reviewed.
func (s *Store) InsertCard(card domain.Card, sourceID int64, now time.Time) error {
	rec := sm2.NewRecord(now)
	_, err := s.conn.Exec(`
		INSERT INTO cards (id, front, back, notes,
			ease_factor, interval_days, next_review_at,
			review_count, lapse_count, correct_count, perfect_count,
			last_reviewed_at, created_at, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, NULL, ?, ?)
	`,
		card.ID, card.Front, card.Back, card.Notes,
		rec.EaseFactor, rec.IntervalDays, rec.NextReviewAt,
		now, sourceID,
	)
	if err != nil {
		return fmt.Errorf("insert card %s: %w", card.ID, err)
	}
	return nil
}

// FindCard returns a card and its record by id, or ErrNotFound.
func (s *Store) FindCard(id string) (Entry, error) {
	row := s.conn.QueryRow(`
		SELECT id, front, back, notes,
			ease_factor, interval_days, next_review_at,
			review_count, lapse_count, correct_count, perfect_count,
			last_reviewed_at, created_at
		FROM cards WHERE id = ?
	`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("find card %s: %w", id, err)
	}
	return entry, nil
}

// ListEntries returns every card in insertion order. This order is the
// session builder's first-in-first-out queue for new cards.
func (s *Store) ListEntries() ([]Entry, error) {
	rows, err := s.conn.Query(`
		SELECT id, front, back, notes,
			ease_factor, interval_days, next_review_at,
			review_count, lapse_count, correct_count, perfect_count,
			last_reviewed_at, created_at
		FROM cards ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ApplyReview loads the card's record, applies the review, and persists the
// updated record together with a review log row in one transaction. Writes
// to the same card are serialized.
func (s *Store) ApplyReview(cardID string, resp sm2.Response, now time.Time) (sm2.MemoryRecord, error) {
	lock := s.lockFor(cardID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.FindCard(cardID)
	if err != nil {
		return sm2.MemoryRecord{}, err
	}
	rec := sm2.Review(entry.Record, resp, now)

	tx, err := s.conn.Begin()
	if err != nil {
		return sm2.MemoryRecord{}, fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE cards
		SET ease_factor = ?, interval_days = ?, next_review_at = ?,
			review_count = ?, lapse_count = ?, correct_count = ?, perfect_count = ?,
			last_reviewed_at = ?
		WHERE id = ?
	`,
		rec.EaseFactor, rec.IntervalDays, rec.NextReviewAt,
		rec.ReviewCount, rec.LapseCount, rec.CorrectCount, rec.PerfectCount,
		rec.LastReviewedAt, cardID,
	)
	if err != nil {
		return sm2.MemoryRecord{}, fmt.Errorf("update record for %s: %w", cardID, err)
	}

	_, err = tx.Exec(`
		INSERT INTO review_logs (card_id, response, reviewed_at)
		VALUES (?, ?, ?)
	`, cardID, resp.String(), now)
	if err != nil {
		return sm2.MemoryRecord{}, fmt.Errorf("insert review log for %s: %w", cardID, err)
	}

	if err := tx.Commit(); err != nil {
		return sm2.MemoryRecord{}, fmt.Errorf("commit review for %s: %w", cardID, err)
	}
	return rec, nil
}

// ReviewLogs returns a card's review history, oldest first.
func (s *Store) ReviewLogs(cardID string) ([]domain.ReviewLog, error) {
	rows, err := s.conn.Query(`
		SELECT card_id, response, reviewed_at
		FROM review_logs WHERE card_id = ? ORDER BY reviewed_at, id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list review logs for %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			log  domain.ReviewLog
			name string
		)
		if err := rows.Scan(&log.CardID, &name, &log.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan review log row: %w", err)
		}
		if err := log.Response.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("review log for %s: %w", cardID, err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// DeleteCard removes a card and its review history.
func (s *Store) DeleteCard(id string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM review_logs WHERE card_id = ?`, id); err != nil {
		return fmt.Errorf("delete review logs for %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM cards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return tx.Commit()
}

// CardIDsBySource returns the ids of all cards belonging to a source.
func (s *Store) CardIDsBySource(sourceID int64) ([]string, error) {
	rows, err := s.conn.Query(`SELECT id FROM cards WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list cards for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertSource stores a new deck origin and returns its id.
func (s *Store) InsertSource(path, kind string) (int64, error) {
	res, err := s.conn.Exec(`INSERT INTO sources (path, kind) VALUES (?, ?)`, path, kind)
	if err != nil {
		return 0, fmt.Errorf("insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("source id for %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath returns the source with the given path, or ErrNotFound.
func (s *Store) FindSourceByPath(path string) (Source, error) {
	var src Source
	row := s.conn.QueryRow(`SELECT id, path, kind, last_synced FROM sources WHERE path = ?`, path)
	if err := row.Scan(&src.ID, &src.Path, &src.Kind, &src.LastSynced); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Source{}, fmt.Errorf("source %s: %w", path, ErrNotFound)
		}
		return Source{}, fmt.Errorf("find source %s: %w", path, err)
	}
	return src, nil
}

// Sources returns all deck origins.
func (s *Store) Sources() ([]Source, error) {
	rows, err := s.conn.Query(`SELECT id, path, kind, last_synced FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Path, &src.Kind, &src.LastSynced); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// TouchSource stamps the source's last successful sync.
func (s *Store) TouchSource(sourceID int64, when time.Time) error {
	if _, err := s.conn.Exec(`UPDATE sources SET last_synced = ? WHERE id = ?`, when, sourceID); err != nil {
		return fmt.Errorf("touch source %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a deck origin. Its cards are left in place until the
// next sync prunes them as orphans.
func (s *Store) DeleteSource(sourceID int64) error {
	if _, err := s.conn.Exec(`DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete source %d: %w", sourceID, err)
	}
	return nil
}

// lockFor returns the mutex serializing reviews of one card.
func (s *Store) lockFor(cardID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.cardLocks[cardID]
	if !ok {
		lock = &sync.Mutex{}
		s.cardLocks[cardID] = lock
	}
	return lock
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e            Entry
		lastReviewed sql.NullTime
	)
	err := row.Scan(
		&e.Card.ID, &e.Card.Front, &e.Card.Back, &e.Card.Notes,
		&e.Record.EaseFactor, &e.Record.IntervalDays, &e.Record.NextReviewAt,
		&e.Record.ReviewCount, &e.Record.LapseCount, &e.Record.CorrectCount, &e.Record.PerfectCount,
		&lastReviewed, &e.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		e.Record.LastReviewedAt = &t
	}
	return e, nil
}
