package deck

import (
	"context"
	"fmt"
	"slices"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/srs"
	"github.com/conorfennell/flashdeck/internal/study"
)

// StartSession builds a study session over the cards due now, most urgent
// first. The session works on copies; nothing is saved until
// CompleteSession.
func (s *Service) StartSession(opts srs.QueueOptions) study.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	queue := s.params.SortByUrgency(s.params.DueForReview(s.cards, now, opts), now)
	s.log.Debug("Study session started", "cards", len(queue), "exclude_new_today", opts.ExcludeNewToday)
	return study.New(s.params, cloneCards(queue), now)
}

// CompleteSession merges the answered cards back into the deck and appends a
// study session record. A session with no answers changes nothing and
// returns false. When either save fails the deck and its records are left
// as they were.
func (s *Service) CompleteSession(ctx context.Context, res study.Result) (domain.StudySession, bool, error) {
	if len(res.UpdatedCards) == 0 {
		return domain.StudySession{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.cards)
	merged := 0
	for _, u := range res.UpdatedCards {
		i := slices.IndexFunc(next, func(c domain.Card) bool { return c.ID == u.ID })
		if i < 0 {
			s.log.Warn("Answered card no longer in deck", "id", u.ID)
			continue
		}
		next[i] = u.Clone()
		merged++
	}

	record := res.Record()
	sessions := append(slices.Clip(s.sessions), record)
	if err := s.store.SaveSessions(ctx, sessions); err != nil {
		return domain.StudySession{}, false, fmt.Errorf("deck.CompleteSession: save session: %w", err)
	}

	if err := s.commitCards(ctx, next); err != nil {
		if rbErr := s.store.SaveSessions(ctx, s.sessions); rbErr != nil {
			s.log.Error("Failed to roll back session record", "id", record.ID, "error", rbErr)
		}
		return domain.StudySession{}, false, fmt.Errorf("deck.CompleteSession: %w", err)
	}
	s.sessions = sessions

	s.log.Info("Study session completed",
		"cards", merged,
		"correct", res.Correct,
		"incorrect", res.Incorrect,
		"overdue_reviews", res.OverdueReviews,
		"minutes", record.TotalTime,
	)
	return record, true, nil
}
