// Package deck owns the in-memory deck and keeps it in step with storage.
// Cards go in and out by value; callers never share memory with the deck.
package deck

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/srs"
	"github.com/conorfennell/flashdeck/internal/storage"
	"github.com/conorfennell/flashdeck/internal/trend"
)

// deckStore is the persistence the deck needs.
type deckStore interface {
	Load(ctx context.Context) (*storage.Data, error)
	SaveCards(ctx context.Context, cards []domain.Card) error
	SaveSessions(ctx context.Context, sessions []domain.StudySession) error
	LoadOverdueHistory(ctx context.Context) ([]domain.OverdueSnapshot, error)
	SaveOverdueHistory(ctx context.Context, history []domain.OverdueSnapshot) error
}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	Params       *srs.Params
	Now          func() time.Time
	HistoryLimit int
}

// Service implements the deck operations on top of the scheduling engine.
type Service struct {
	log          *slog.Logger
	store        deckStore
	params       *srs.Params
	now          func() time.Time
	historyLimit int

	mu       sync.Mutex
	cards    []domain.Card
	sessions []domain.StudySession
	history  []domain.OverdueSnapshot
}

// NewService creates a deck service. Call Open before using it.
func NewService(logger *slog.Logger, store deckStore, opts Options) *Service {
	if opts.Params == nil {
		opts.Params = srs.DefaultParams()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = trend.DefaultHistoryLimit
	}
	return &Service{
		log:          logger.With("component", "deck"),
		store:        store,
		params:       opts.Params,
		now:          opts.Now,
		historyLimit: opts.HistoryLimit,
		cards:        []domain.Card{},
		sessions:     []domain.StudySession{},
		history:      []domain.OverdueSnapshot{},
	}
}

// Params returns the scheduling parameters in use.
func (s *Service) Params() *srs.Params {
	return s.params
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Open loads the deck, applies the overdue penalty once and records today's
// overdue snapshot. Demoted cards are persisted before Open returns.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("deck.Open: %w", err)
	}
	history, err := s.store.LoadOverdueHistory(ctx)
	if err != nil {
		s.log.Warn("Failed to load overdue history", "error", err)
		history = []domain.OverdueSnapshot{}
	}

	now := s.now()
	penalized, demoted := s.params.ApplyOverduePenalty(data.Cards, now)
	if demoted > 0 {
		if err := s.store.SaveCards(ctx, penalized); err != nil {
			return fmt.Errorf("deck.Open: save penalized cards: %w", err)
		}
		s.log.Info("Applied overdue penalty", "demoted", demoted)
	}

	s.cards = penalized
	s.sessions = nonNil(data.Sessions)
	s.history = nonNil(history)
	s.recordSnapshot(ctx, now)

	s.log.Debug("Deck opened", "cards", len(s.cards), "sessions", len(s.sessions))
	return nil
}

// Cards returns a copy of every card in stored order.
func (s *Service) Cards() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCards(s.cards)
}

// Card returns the card with the given id.
func (s *Service) Card(id string) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return s.cards[i].Clone(), nil
}

// Sessions returns a copy of the study session records, oldest first.
func (s *Service) Sessions() []domain.StudySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sessions)
}

// OverdueHistory returns a copy of the daily overdue snapshots.
func (s *Service) OverdueHistory() []domain.OverdueSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// commitCards persists next and makes it the current deck. The in-memory
// deck is left unchanged when the save fails.
func (s *Service) commitCards(ctx context.Context, next []domain.Card) error {
	if err := s.store.SaveCards(ctx, next); err != nil {
		return err
	}
	s.cards = next
	s.recordSnapshot(ctx, s.now())
	return nil
}

// recordSnapshot stores today's overdue count. Failures only log.
func (s *Service) recordSnapshot(ctx context.Context, now time.Time) {
	count := s.params.CountOverdue(s.cards, now)
	history, changed := trend.RecordSnapshot(s.history, count, now, s.historyLimit)
	if !changed {
		return
	}
	if err := s.store.SaveOverdueHistory(ctx, history); err != nil {
		s.log.Warn("Failed to save overdue history", "count", count, "error", err)
		return
	}
	s.history = history
}

func (s *Service) indexOf(id string) int {
	return slices.IndexFunc(s.cards, func(c domain.Card) bool { return c.ID == id })
}

func cloneCards(cards []domain.Card) []domain.Card {
	out := make([]domain.Card, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
