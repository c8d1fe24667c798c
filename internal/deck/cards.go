package deck

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/parser"
	"github.com/conorfennell/flashdeck/internal/srs"
	"github.com/conorfennell/flashdeck/internal/validate"
)

// ImportResult reports what Import did with each pair.
type ImportResult struct {
	Added      []domain.Card
	Duplicates int
	Rejected   int
}

// Import adds a new card for every valid pair whose term and definition are
// not already in the deck. Invalid pairs are counted as rejected.
func (s *Service) Import(ctx context.Context, pairs []parser.Pair) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := ImportResult{Added: []domain.Card{}}

	seen := make(map[string]bool, len(s.cards)+len(pairs))
	for _, c := range s.cards {
		seen[knol.Hash(c)] = true
	}

	now := s.now()
	for _, p := range pairs {
		p.Term, p.Definition = strings.TrimSpace(p.Term), strings.TrimSpace(p.Definition)
		if err := validate.Struct(p); err != nil {
			s.log.Debug("Rejected pair", "term", p.Term, "error", err)
			res.Rejected++
			continue
		}
		key := knol.Key(p.Term, p.Definition)
		if seen[key] {
			res.Duplicates++
			continue
		}
		seen[key] = true
		res.Added = append(res.Added, domain.NewCard(p.Term, p.Definition, now))
	}

	if len(res.Added) == 0 {
		return res, nil
	}

	next := append(slices.Clip(s.cards), res.Added...)
	if err := s.commitCards(ctx, next); err != nil {
		return ImportResult{}, fmt.Errorf("deck.Import: %w", err)
	}

	s.log.Info("Imported cards", "added", len(res.Added), "duplicates", res.Duplicates, "rejected", res.Rejected)
	res.Added = cloneCards(res.Added)
	return res, nil
}

// Review grades a single card outside a study session.
func (s *Service) Review(ctx context.Context, id string, correct bool, responseTime time.Duration) (domain.Card, error) {
	return s.mutate(ctx, "deck.Review", id, func(c domain.Card, now time.Time) (domain.Card, error) {
		return s.params.Review(c, correct, responseTime, now), nil
	})
}

// Restore returns a learned card to the active queue at level 0, due now.
// Active cards are rejected with a validation error.
func (s *Service) Restore(ctx context.Context, id string) (domain.Card, error) {
	return s.mutate(ctx, "deck.Restore", id, func(c domain.Card, now time.Time) (domain.Card, error) {
		if !c.IsLearned() {
			return domain.Card{}, domain.NewValidationError("status", "only learned cards can be restored")
		}
		return srs.Restore(c, now), nil
	})
}

// UpdateCardInput edits the text of a card. Scheduling state is kept.
type UpdateCardInput struct {
	ID         string `validate:"required"`
	Term       string `validate:"required,max=200"`
	Definition string `validate:"required,max=500"`
}

// Validate trims the input and checks it.
func (in *UpdateCardInput) Validate() error {
	in.Term = strings.TrimSpace(in.Term)
	in.Definition = strings.TrimSpace(in.Definition)
	return validate.Struct(in)
}

// Update changes a card's term and definition.
func (s *Service) Update(ctx context.Context, in UpdateCardInput) (domain.Card, error) {
	if err := in.Validate(); err != nil {
		return domain.Card{}, fmt.Errorf("deck.Update: %w", err)
	}
	return s.mutate(ctx, "deck.Update", in.ID, func(c domain.Card, _ time.Time) (domain.Card, error) {
		c.Term = in.Term
		c.Definition = in.Definition
		return c, nil
	})
}

// mutate applies fn to the card with the given id and persists the deck.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(domain.Card, time.Time) (domain.Card, error)) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Card{}, fmt.Errorf("%s: card %s: %w", op, id, domain.ErrNotFound)
	}

	updated, err := fn(s.cards[i].Clone(), s.now())
	if err != nil {
		return domain.Card{}, fmt.Errorf("%s: %w", op, err)
	}

	next := slices.Clone(s.cards)
	next[i] = updated
	if err := s.commitCards(ctx, next); err != nil {
		return domain.Card{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated.Clone(), nil
}

// Delete removes the card with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("deck.Delete: card %s: %w", id, domain.ErrNotFound)
	}

	next := slices.Delete(slices.Clone(s.cards), i, i+1)
	if err := s.commitCards(ctx, next); err != nil {
		return fmt.Errorf("deck.Delete: %w", err)
	}
	s.log.Info("Deleted card", "id", id)
	return nil
}

// DeleteAll removes every card. Study session records are kept.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.cards)
	if err := s.commitCards(ctx, []domain.Card{}); err != nil {
		return 0, fmt.Errorf("deck.DeleteAll: %w", err)
	}
	s.log.Info("Deleted all cards", "count", n)
	return n, nil
}
