package study

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/srs"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func deck(t *testing.T) []domain.Card {
	t.Helper()
	overdue := domain.NewCard("overdue", "late", t0.AddDate(0, 0, -30))
	overdue.CurrentLevel = 2
	overdue.IsNew = false
	overdue.NextReviewDate = t0.AddDate(0, 0, -2)

	fresh := domain.NewCard("fresh", "new", t0)
	fresh.NextReviewDate = t0.Add(time.Minute)

	third := domain.NewCard("third", "card", t0)
	third.NextReviewDate = t0.Add(time.Minute)

	return []domain.Card{overdue, fresh, third}
}

func mustAnswer(t *testing.T, s Session, correct bool, now time.Time) Session {
	t.Helper()
	next, err := s.Answer(correct, 2*time.Second, now)
	require.NoError(t, err)
	return next
}

func TestSessionAnswerAdvances(t *testing.T) {
	p := srs.DefaultParams()
	cards := deck(t)
	s := New(p, cards, t0)

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "overdue", current.Term)

	s2 := mustAnswer(t, s, true, t0.Add(time.Second))

	idx, total := s2.Position()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 3, total)
	idx, _ = s.Position()
	assert.Equal(t, 0, idx, "the original session value is unchanged")
	assert.Empty(t, s.History())
	assert.Len(t, s2.History(), 1)
}

func TestSessionFinishedRejectsAnswers(t *testing.T) {
	p := srs.DefaultParams()
	s := New(p, deck(t)[:1], t0)
	s = mustAnswer(t, s, true, t0)

	assert.True(t, s.Done())
	_, ok := s.Current()
	assert.False(t, ok)

	_, err := s.Answer(true, 0, t0)
	assert.ErrorIs(t, err, ErrSessionFinished)
}

func TestSessionUndo(t *testing.T) {
	p := srs.DefaultParams()
	cards := deck(t)
	s := New(p, cards, t0)

	_, err := s.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	s = mustAnswer(t, s, true, t0)
	s = mustAnswer(t, s, false, t0)

	undone, err := s.Undo()
	require.NoError(t, err)

	current, ok := undone.Current()
	require.True(t, ok)
	assert.Equal(t, cards[1], current, "undo restores the exact previous card value")
	idx, _ := undone.Position()
	assert.Equal(t, 1, idx)

	res := undone.Finish(t0.Add(time.Minute))
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 0, res.Incorrect)
	assert.Empty(t, res.IncorrectCards)
	require.Len(t, res.UpdatedCards, 1)
	assert.Equal(t, "overdue", res.UpdatedCards[0].Term)
}

func TestSessionUndoRestoresEarlierUpdate(t *testing.T) {
	p := srs.DefaultParams()
	card := deck(t)[0]
	// The same card queued twice, as when missed cards are reviewed again.
	s := New(p, []domain.Card{card, card}, t0)

	s = mustAnswer(t, s, true, t0)
	afterFirst, _ := s.Current()
	s = mustAnswer(t, s, false, t0)

	undone, err := s.Undo()
	require.NoError(t, err)
	current, _ := undone.Current()
	assert.Equal(t, afterFirst, current)
	assert.Equal(t, 3, current.CurrentLevel)
}

func TestSessionFinish(t *testing.T) {
	p := srs.DefaultParams()
	cards := deck(t)
	s := New(p, cards, t0)

	s = mustAnswer(t, s, true, t0)  // overdue card, correct
	s = mustAnswer(t, s, false, t0) // fresh, wrong
	s = mustAnswer(t, s, true, t0)  // third, correct

	finishedAt := t0.Add(90 * time.Second)
	res := s.Finish(finishedAt)

	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 1, res.Incorrect)
	assert.Equal(t, 1, res.OverdueReviews)
	assert.Equal(t, 90*time.Second, res.Duration)
	require.Len(t, res.UpdatedCards, 3)
	assert.Equal(t, 3, res.UpdatedCards[0].CurrentLevel)
	assert.Equal(t, 0, res.UpdatedCards[1].CurrentLevel)
	assert.Equal(t, 1, res.UpdatedCards[2].CurrentLevel)
	for _, c := range res.UpdatedCards {
		assert.False(t, c.IsNew)
		assert.Len(t, c.Repetitions, 1)
	}
	require.Len(t, res.IncorrectCards, 1)
	assert.Equal(t, "fresh", res.IncorrectCards[0].Term)

	rec := res.Record()
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, finishedAt, rec.Date)
	assert.Equal(t, 3, rec.CardsStudied)
	assert.Equal(t, 2, rec.CorrectAnswers)
	assert.InDelta(t, 1.5, rec.TotalTime, 1e-9)
	assert.Equal(t, 1, rec.OverdueReviews)

	for _, c := range cards {
		assert.True(t, c.IsNew || c.Term == "overdue", "input cards must not change")
		assert.Empty(t, c.Repetitions)
	}
}

func TestSessionEmpty(t *testing.T) {
	s := New(srs.DefaultParams(), nil, t0)

	assert.True(t, s.Done())
	res := s.Finish(t0)
	assert.NotNil(t, res.UpdatedCards)
	assert.Empty(t, res.UpdatedCards)
	assert.Equal(t, 0, res.Record().CardsStudied)
}
