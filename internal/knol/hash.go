// Package knol derives content keys for cards so the same vocabulary entry
// imported twice is recognised as a duplicate.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Normalize joins term and definition after cleaning each part.
// It lowercases, normalizes line endings and trims whitespace for each
// field before joining them.
func Normalize(term, definition string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	// Joined with a newline so "ab"+"c" and "a"+"bc" stay distinct.
	return normalizePart(term) + "\n" + normalizePart(definition)
}

// Key normalizes a term and definition and returns the SHA-256 hash as a hex string.
func Key(term, definition string) string {
	sum := sha256.Sum256([]byte(Normalize(term, definition)))
	return fmt.Sprintf("%x", sum)
}

// Hash returns the key of an existing card.
func Hash(card domain.Card) string {
	return Key(card.Term, card.Definition)
}
