package srs

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Review applies one answer to card and returns the updated copy. The
// response time is recorded but plays no part in scheduling.
//
// A correct answer moves the card up one level and marks it learned at the
// top level. An incorrect answer drops one level, or all the way to 0 when
// the previous answer was also incorrect.
func (p *Params) Review(card domain.Card, correct bool, responseTime time.Duration, now time.Time) domain.Card {
	out := card.Clone()
	current := p.ClampLevel(card.CurrentLevel)

	out.Repetitions = append(out.Repetitions, domain.Repetition{
		Level:        card.CurrentLevel,
		Date:         now,
		Correct:      correct,
		ResponseTime: responseTime,
	})

	var level int
	if correct {
		level = min(current+1, p.MaxLevel())
		out.Status = domain.StatusActive
		if level == p.MaxLevel() {
			out.Status = domain.StatusLearned
		}
	} else {
		if twoConsecutiveFailures(out.LastRepetitions(2)) {
			level = 0
		} else {
			level = max(current-1, 0)
		}
		out.Status = domain.StatusActive
	}

	out.CurrentLevel = level
	out.NextReviewDate = p.NextReviewDate(level, now)
	out.IsNew = false
	return out
}

func twoConsecutiveFailures(last []domain.Repetition) bool {
	return len(last) == 2 && !last[0].Correct && !last[1].Correct
}

// Restore brings a learned card back into rotation from level 0, due now.
func Restore(card domain.Card, now time.Time) domain.Card {
	out := card.Clone()
	out.Status = domain.StatusActive
	out.CurrentLevel = 0
	out.NextReviewDate = now
	out.IsNew = false
	return out
}
