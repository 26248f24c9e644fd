// Package session selects which cards to study: a bounded mix of overdue
// and never-seen cards, built on the scheduler's classification.
package session

import (
	"sort"
	"time"

	"github.com/rishabhcli/cardgenie/internal/sm2"
)

// Entry pairs a card's identity with its scheduling state. Callers supply
// entries in card insertion order; that order is the tie-break for new cards.
type Entry struct {
	CardID string
	Record sm2.MemoryRecord
}

// Build returns the ordered card ids for one study session: up to maxReview
// due cards (earliest-overdue first), followed by up to maxNew new cards in
// insertion order. An empty result means nothing to study, not an error.
// Negative caps behave as zero.
func Build(entries []Entry, maxNew, maxReview int, now time.Time) []string {
	if maxNew < 0 {
		maxNew = 0
	}
	if maxReview < 0 {
		maxReview = 0
	}

	due := DueQueue(entries, now)
	if len(due) > maxReview {
		due = due[:maxReview]
	}

	ids := make([]string, 0, len(entries))
	ids = append(ids, due...)

	taken := 0
	for _, e := range entries {
		if taken >= maxNew {
			break
		}
		if e.Record.IsNew() {
			ids = append(ids, e.CardID)
			taken++
		}
	}
	return ids
}

// DueQueue returns every due card id sorted ascending by due instant, with
// no cap. New cards never appear. Reminder badges and counts are derived
// from this queue.
func DueQueue(entries []Entry, now time.Time) []string {
	due := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Record.IsDue(now) {
			due = append(due, e)
		}
	}
	// Stable keeps insertion order for cards due at the same instant.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Record.NextReviewAt.Before(due[j].Record.NextReviewAt)
	})

	ids := make([]string, len(due))
	for i, e := range due {
		ids[i] = e.CardID
	}
	return ids
}
