package cardid

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/repcard/repcard/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each
// field before joining them, so cosmetic edits in a deck file do not
// mint a new card and orphan its progress.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	f := normalizePart(card.Front)
	b := normalizePart(card.Back)
	h := normalizePart(card.Hint)

	// Joined with newlines to keep the fields separated; otherwise
	// "front" + "back" would collide with "fron" + "tback".
	return strings.Join([]string{f, b, h}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a
// hex string. This is the card's ID.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
