// Package deck derives stable card identities from card content.
package deck

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rishabhcli/cardgenie/internal/domain"
)

// Normalize returns the canonical text of a card: each field lowercased,
// trimmed, with line endings unified, joined by newlines so fields cannot
// run together.
func Normalize(card domain.Card) string {
	parts := []string{card.Front, card.Back, card.Notes}
	for i, p := range parts {
		p = strings.ToLower(p)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		parts[i] = p
	}
	return strings.Join(parts, "\n")
}

// ID returns the card's identity: the SHA-256 of its normalized content as
// a hex string. Editing a card's wording creates a new card with a fresh
// memory record; the old one is pruned as an orphan on the next sync.
func ID(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return hex.EncodeToString(sum[:])
}
