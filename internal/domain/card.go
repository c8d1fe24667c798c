package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card represents a single term-definition entry under study.
type Card struct {
	ID             string
	Term           string
	Definition     string
	CreatedAt      time.Time
	CurrentLevel   int
	NextReviewDate time.Time
	IsNew          bool
	Status         Status
	Repetitions    []Repetition
}

// Repetition records a single review event for a card.
// Level is the card's level before the review was applied.
type Repetition struct {
	Level        int
	Date         time.Time
	Correct      bool
	ResponseTime time.Duration
}

// NewCard builds a freshly imported card: level 0, due immediately, active and new.
func NewCard(term, definition string, now time.Time) Card {
	return Card{
		ID:             uuid.NewString(),
		Term:           strings.TrimSpace(term),
		Definition:     strings.TrimSpace(definition),
		CreatedAt:      now,
		CurrentLevel:   0,
		NextReviewDate: now,
		IsNew:          true,
		Status:         StatusActive,
		Repetitions:    []Repetition{},
	}
}

// IsLearned reports whether the card has reached mastery.
func (c Card) IsLearned() bool {
	return c.Status == StatusLearned
}

// Clone returns a copy of the card that shares no memory with c.
func (c Card) Clone() Card {
	out := c
	out.Repetitions = slices.Clone(c.Repetitions)
	if out.Repetitions == nil {
		out.Repetitions = []Repetition{}
	}
	return out
}

// LastRepetitions returns up to n of the most recent repetitions, oldest first.
func (c Card) LastRepetitions(n int) []Repetition {
	if n <= 0 {
		return nil
	}
	if len(c.Repetitions) <= n {
		return c.Repetitions
	}
	return c.Repetitions[len(c.Repetitions)-n:]
}
