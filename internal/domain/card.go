package domain

import (
	"time"

	"github.com/rishabhcli/cardgenie/internal/sm2"
)

// Card is a single learnable unit. ID is a content hash (see the deck
// package), so identity is stable across file moves and re-syncs.
type Card struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
	Notes string `json:"notes,omitempty"`
}

// ReviewLog records one completed review of a card.
type ReviewLog struct {
	CardID     string       `json:"card_id"`
	Response   sm2.Response `json:"response"`
	ReviewedAt time.Time    `json:"reviewed_at"`
}
