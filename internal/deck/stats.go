package deck

import (
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/srs"
	"github.com/conorfennell/flashdeck/internal/trend"
)

// Overview groups the numbers shown on the dashboard.
type Overview struct {
	Stats       srs.StudyStats
	Overdue     int
	LongOverdue int
	DueSoon     int
	Learned     int
}

// Stats returns the level breakdown and urgency counts for the active deck.
func (s *Service) Stats() Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	learned := 0
	for _, c := range s.cards {
		if c.IsLearned() {
			learned++
		}
	}
	return Overview{
		Stats:       s.params.Stats(s.cards, now),
		Overdue:     len(s.params.OverdueCards(s.cards, now)),
		LongOverdue: len(s.params.LongOverdueCards(s.cards, now)),
		DueSoon:     len(s.params.DueSoonCards(s.cards, now)),
		Learned:     learned,
	}
}

// Summary aggregates the study session records for today, this month and
// this year.
func (s *Service) Summary() trend.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return trend.Aggregate(s.sessions, s.now())
}

// Urgent returns the active cards ordered by urgency, most urgent first.
// Learned cards are left out.
func (s *Service) Urgent() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]domain.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if !c.IsLearned() {
			active = append(active, c.Clone())
		}
	}
	return s.params.SortByUrgency(active, s.now())
}

// Queue returns the cards a new session would study, without starting one.
func (s *Service) Queue(opts srs.QueueOptions) []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return cloneCards(s.params.SortByUrgency(s.params.DueForReview(s.cards, now, opts), now))
}

// NewToday returns the cards imported today that were never reviewed.
func (s *Service) NewToday() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCards(s.params.NewToday(s.cards, s.now()))
}
