// Package parser extracts cards from markdown deck files. A card is a
// block of Q: / A: / N: prefixed lines; "---" or a new Q: line starts the
// next card. Everything else (headings, prose) is ignored.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/rishabhcli/cardgenie/internal/domain"
)

const (
	frontMarker = "Q:"
	backMarker  = "A:"
	notesMarker = "N:"
	separator   = "---"
)

type field int

const (
	none field = iota
	front
	back
	notes
)

// ParseFile reads the file at path and extracts all cards. Card IDs are not
// assigned here; sync hashes the content afterwards.
func ParseFile(path string) ([]domain.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse extracts all cards from r. Cards without a front are dropped
// silently; a deck file with no cards yields an empty slice, not an error.
func Parse(r io.Reader) ([]domain.Card, error) {
	var (
		cards   []domain.Card
		current domain.Card
		block   []string
		active  field
	)

	closeBlock := func() {
		if len(block) == 0 {
			return
		}
		text := strings.TrimRight(strings.Join(block, "\n"), "\n ")
		switch active {
		case front:
			current.Front = text
		case back:
			current.Back = text
		case notes:
			current.Notes = text
		}
		block = nil
	}

	closeCard := func() {
		closeBlock()
		if current.Front != "" {
			cards = append(cards, current)
		}
		current = domain.Card{}
		active = none
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			closeCard()
			continue
		}

		marker, rest := splitMarker(line)
		switch marker {
		case front:
			// A new front always starts a new card.
			if active != none {
				closeCard()
			}
			active = front
			block = append(block, rest)
		case back, notes:
			closeBlock()
			active = marker
			block = append(block, rest)
		default:
			if active != none {
				block = append(block, line)
			}
		}
	}
	closeCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// splitMarker returns the field a line opens and the content after the
// marker, or none when the line carries no marker.
func splitMarker(line string) (field, string) {
	var f field
	switch {
	case strings.HasPrefix(line, frontMarker):
		f = front
	case strings.HasPrefix(line, backMarker):
		f = back
	case strings.HasPrefix(line, notesMarker):
		f = notes
	default:
		return none, ""
	}
	return f, strings.TrimPrefix(line[2:], " ")
}
