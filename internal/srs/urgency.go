package srs

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Urgency scores, highest first.
const (
	ScoreNone        = 0
	ScoreDueSoon     = 1
	ScoreOverdue     = 2
	ScoreLongOverdue = 3
)

// Urgency describes how pressing a card's next review is at a given moment.
type Urgency struct {
	IsOverdue     bool
	IsLongOverdue bool
	OverdueDays   int
	IsDueSoon     bool
	DaysUntilDue  int
	Score         int
}

// Urgency classifies card relative to now. A card without a due date is
// neither overdue nor due soon.
func (p *Params) Urgency(card domain.Card, now time.Time) Urgency {
	if card.NextReviewDate.IsZero() {
		return Urgency{}
	}

	var u Urgency
	diff := card.NextReviewDate.Sub(now)
	u.IsOverdue = diff <= 0
	if u.IsOverdue {
		u.OverdueDays = int(-diff / day)
		u.IsLongOverdue = u.OverdueDays >= p.LongOverdueDays
	} else {
		u.DaysUntilDue = int((diff + day - 1) / day)
		u.IsDueSoon = u.DaysUntilDue <= p.DueSoonDays
	}

	switch {
	case u.IsLongOverdue:
		u.Score = ScoreLongOverdue
	case u.IsOverdue:
		u.Score = ScoreOverdue
	case u.IsDueSoon:
		u.Score = ScoreDueSoon
	}
	return u
}

// SortByUrgency returns the cards ordered most urgent first. Ties go to the
// earlier due date, then reviewed cards before new ones, then by term.
// The input slice is left untouched.
func (p *Params) SortByUrgency(cards []domain.Card, now time.Time) []domain.Card {
	type ranked struct {
		card  domain.Card
		score int
	}
	rs := make([]ranked, len(cards))
	for i, c := range cards {
		rs[i] = ranked{card: c, score: p.Urgency(c, now).Score}
	}

	slices.SortStableFunc(rs, func(a, b ranked) int {
		if a.score != b.score {
			return cmp.Compare(b.score, a.score)
		}
		if c := compareDue(a.card.NextReviewDate, b.card.NextReviewDate); c != 0 {
			return c
		}
		if a.card.IsNew != b.card.IsNew {
			if a.card.IsNew {
				return 1
			}
			return -1
		}
		if c := strings.Compare(a.card.Term, b.card.Term); c != 0 {
			return c
		}
		return strings.Compare(a.card.ID, b.card.ID)
	})

	out := make([]domain.Card, len(rs))
	for i, r := range rs {
		out[i] = r.card
	}
	return out
}

// compareDue orders due dates ascending with missing dates last.
func compareDue(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}

// OverdueCards returns the active cards that are due at or before now.
func (p *Params) OverdueCards(cards []domain.Card, now time.Time) []domain.Card {
	return p.filterActive(cards, func(u Urgency) bool { return u.IsOverdue }, now)
}

// LongOverdueCards returns the active cards overdue by LongOverdueDays or more.
func (p *Params) LongOverdueCards(cards []domain.Card, now time.Time) []domain.Card {
	return p.filterActive(cards, func(u Urgency) bool { return u.IsLongOverdue }, now)
}

// DueSoonCards returns the active cards due within DueSoonDays.
func (p *Params) DueSoonCards(cards []domain.Card, now time.Time) []domain.Card {
	return p.filterActive(cards, func(u Urgency) bool { return u.IsDueSoon }, now)
}

// CountOverdue returns len(OverdueCards(cards, now)).
func (p *Params) CountOverdue(cards []domain.Card, now time.Time) int {
	n := 0
	for _, c := range cards {
		if !c.IsLearned() && p.Urgency(c, now).IsOverdue {
			n++
		}
	}
	return n
}

func (p *Params) filterActive(cards []domain.Card, keep func(Urgency) bool, now time.Time) []domain.Card {
	out := []domain.Card{}
	for _, c := range cards {
		if c.IsLearned() {
			continue
		}
		if keep(p.Urgency(c, now)) {
			out = append(out, c)
		}
	}
	return out
}
