package srs

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// QueueOptions tunes DueForReview.
type QueueOptions struct {
	// ExcludeNewToday leaves out level-0 cards created on the current day,
	// separating today's imports from cards that are genuinely due.
	ExcludeNewToday bool
}

// DueForReview selects the active cards that are at level 0 or past their
// due date. The result is unordered and never nil.
func (p *Params) DueForReview(cards []domain.Card, now time.Time, opts QueueOptions) []domain.Card {
	out := []domain.Card{}
	for _, c := range cards {
		if !isDue(c, now) {
			continue
		}
		if opts.ExcludeNewToday && c.CurrentLevel == 0 && SameDay(c.CreatedAt, now) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NewToday selects cards that have never been reviewed and were created on
// now's calendar day.
func (p *Params) NewToday(cards []domain.Card, now time.Time) []domain.Card {
	out := []domain.Card{}
	for _, c := range cards {
		if isNewToday(c, now) {
			out = append(out, c)
		}
	}
	return out
}

func isDue(c domain.Card, now time.Time) bool {
	if c.IsLearned() {
		return false
	}
	if c.CurrentLevel == 0 {
		return true
	}
	return !c.NextReviewDate.IsZero() && !c.NextReviewDate.After(now)
}

func isNewToday(c domain.Card, now time.Time) bool {
	return c.IsNew && SameDay(c.CreatedAt, now)
}

// StudyStats summarises the active part of a deck.
type StudyStats struct {
	Total    int
	New      int
	NewToday int
	Due      int
	ByLevel  map[int]int
}

// Stats counts active cards. ByLevel has an entry for every level, zero included.
func (p *Params) Stats(cards []domain.Card, now time.Time) StudyStats {
	stats := StudyStats{ByLevel: make(map[int]int, len(p.Intervals))}
	for level := 0; level <= p.MaxLevel(); level++ {
		stats.ByLevel[level] = 0
	}

	for _, c := range cards {
		if c.IsLearned() {
			continue
		}
		stats.Total++
		if c.IsNew {
			stats.New++
		}
		if isNewToday(c, now) {
			stats.NewToday++
		}
		if isDue(c, now) {
			stats.Due++
		}
		stats.ByLevel[p.ClampLevel(c.CurrentLevel)]++
	}
	return stats
}
