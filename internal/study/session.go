// Package study runs one review pass over a queue of cards. A Session is a
// value: every answer or undo returns a new Session and leaves the old one
// intact, so callers can keep or discard states freely.
package study

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/srs"
)

var (
	ErrSessionFinished = errors.New("study: session already finished")
	ErrNothingToUndo   = errors.New("study: nothing to undo")
)

// Action is one reversible answer on the undo stack.
type Action struct {
	CardID     string
	Previous   domain.Card // card value before the answer
	HadUpdate  bool        // whether Previous came from an earlier answer in this session
	Correct    bool
	WasOverdue bool
}

// Session tracks progress through a fixed list of cards.
type Session struct {
	params    *srs.Params
	cards     []domain.Card
	index     int
	updated   map[string]domain.Card
	history   []Action
	startedAt time.Time
}

// New starts a session over cards in the given order.
func New(params *srs.Params, cards []domain.Card, now time.Time) Session {
	return Session{
		params:    params,
		cards:     slices.Clone(cards),
		updated:   map[string]domain.Card{},
		startedAt: now,
	}
}

// Current returns the card awaiting an answer, as updated so far in this session.
func (s Session) Current() (domain.Card, bool) {
	if s.Done() {
		return domain.Card{}, false
	}
	return s.latest(s.cards[s.index].ID), true
}

// Position returns the zero-based index of the current card and the queue length.
func (s Session) Position() (int, int) {
	return s.index, len(s.cards)
}

// Done reports whether every card has been answered.
func (s Session) Done() bool {
	return s.index >= len(s.cards)
}

// History returns the undo stack, oldest first.
func (s Session) History() []Action {
	return slices.Clone(s.history)
}

func (s Session) latest(id string) domain.Card {
	if c, ok := s.updated[id]; ok {
		return c
	}
	for _, c := range s.cards {
		if c.ID == id {
			return c
		}
	}
	return domain.Card{}
}

// Answer records the outcome for the current card and advances.
func (s Session) Answer(correct bool, responseTime time.Duration, now time.Time) (Session, error) {
	if s.Done() {
		return s, ErrSessionFinished
	}

	id := s.cards[s.index].ID
	prev, hadUpdate := s.updated[id]
	if !hadUpdate {
		prev = s.cards[s.index]
	}

	next := s.clone()
	next.history = append(next.history, Action{
		CardID:     id,
		Previous:   prev,
		HadUpdate:  hadUpdate,
		Correct:    correct,
		WasOverdue: !prev.IsLearned() && s.params.Urgency(prev, now).IsOverdue,
	})
	next.updated[id] = s.params.Review(prev, correct, responseTime, now)
	next.index++
	return next, nil
}

// Undo reverts the most recent answer and steps back one card.
func (s Session) Undo() (Session, error) {
	if len(s.history) == 0 {
		return s, ErrNothingToUndo
	}

	next := s.clone()
	last := next.history[len(next.history)-1]
	next.history = next.history[:len(next.history)-1]
	if last.HadUpdate {
		next.updated[last.CardID] = last.Previous
	} else {
		delete(next.updated, last.CardID)
	}
	next.index--
	return next, nil
}

func (s Session) clone() Session {
	out := s
	out.updated = maps.Clone(s.updated)
	out.history = slices.Clone(s.history)
	return out
}

// Result is the outcome of a finished or abandoned session.
type Result struct {
	UpdatedCards   []domain.Card // final values of the answered cards, in queue order
	IncorrectCards []domain.Card // final values of cards answered wrong at least once, first-miss order
	Correct        int
	Incorrect      int
	OverdueReviews int
	StartedAt      time.Time
	FinishedAt     time.Time
	Duration       time.Duration
}

// Finish summarises the answers given so far.
func (s Session) Finish(now time.Time) Result {
	res := Result{
		UpdatedCards:   []domain.Card{},
		IncorrectCards: []domain.Card{},
		StartedAt:      s.startedAt,
		FinishedAt:     now,
		Duration:       max(now.Sub(s.startedAt), 0),
	}
	for _, c := range s.cards {
		if u, ok := s.updated[c.ID]; ok {
			res.UpdatedCards = append(res.UpdatedCards, u)
		}
	}

	missed := map[string]bool{}
	overdue := map[string]bool{}
	for _, a := range s.history {
		if a.Correct {
			res.Correct++
		} else {
			res.Incorrect++
			if !missed[a.CardID] {
				missed[a.CardID] = true
				res.IncorrectCards = append(res.IncorrectCards, s.latest(a.CardID))
			}
		}
		if a.WasOverdue {
			overdue[a.CardID] = true
		}
	}
	res.OverdueReviews = len(overdue)
	return res
}

// Record builds the persisted session record.
func (r Result) Record() domain.StudySession {
	return domain.StudySession{
		ID:             uuid.NewString(),
		Date:           r.FinishedAt,
		CardsStudied:   r.Correct + r.Incorrect,
		CorrectAnswers: r.Correct,
		TotalTime:      r.Duration.Minutes(),
		OverdueReviews: r.OverdueReviews,
	}
}
