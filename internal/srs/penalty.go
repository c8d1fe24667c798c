package srs

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// ApplyOverduePenalty demotes cards that were left unreviewed for too long.
// A card loses one level per full PenaltyStepDays overdue, once it is at
// least PenaltyStepDays overdue. Demotion pulls learned cards back to active.
// Due dates are not moved, so a demoted card stays due until reviewed.
//
// It returns a new slice and the number of cards that changed.
func (p *Params) ApplyOverduePenalty(cards []domain.Card, now time.Time) ([]domain.Card, int) {
	out := make([]domain.Card, len(cards))
	demoted := 0
	for i, c := range cards {
		out[i] = c
		if c.NextReviewDate.IsZero() || c.NextReviewDate.After(now) {
			continue
		}

		overdueDays := int(now.Sub(c.NextReviewDate) / day)
		if overdueDays < p.PenaltyStepDays {
			continue
		}

		penalty := overdueDays / p.PenaltyStepDays
		level := max(0, p.ClampLevel(c.CurrentLevel)-penalty)
		if level == c.CurrentLevel {
			continue
		}

		updated := c.Clone()
		updated.CurrentLevel = level
		updated.Status = domain.StatusActive
		out[i] = updated
		demoted++
	}
	return out, demoted
}
