package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
)

var ref = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func session(date time.Time, studied, correct int, minutes float64, overdue int) domain.StudySession {
	return domain.StudySession{
		ID:             date.String(),
		Date:           date,
		CardsStudied:   studied,
		CorrectAnswers: correct,
		TotalTime:      minutes,
		OverdueReviews: overdue,
	}
}

func TestAggregate(t *testing.T) {
	sessions := []domain.StudySession{
		session(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 10, 7, 5.5, 2),  // today, at window start
		session(time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC), 5, 5, 2, 0),   // today
		session(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), 100, 0, 60, 50), // tomorrow, excluded everywhere but year
		session(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), 4, 1, 1, 1),      // this month
		session(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 6, 3, 3, 0),      // this year
		session(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), 9, 9, 9, 9),  // last year
	}

	got := Aggregate(sessions, ref)

	assert.Equal(t, Timeframe{Sessions: 2, CardsStudied: 15, CorrectAnswers: 12, Minutes: 7.5, OverdueReviews: 2, Accuracy: 80}, got.Day)
	assert.Equal(t, Timeframe{Sessions: 4, CardsStudied: 119, CorrectAnswers: 13, Minutes: 68.5, OverdueReviews: 53, Accuracy: 11}, got.Month)
	assert.Equal(t, Timeframe{Sessions: 5, CardsStudied: 125, CorrectAnswers: 16, Minutes: 71.5, OverdueReviews: 53, Accuracy: 13}, got.Year)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil, ref)
	assert.Equal(t, Summary{}, got)

	zero := Aggregate([]domain.StudySession{session(ref, 0, 0, 0, 0)}, ref)
	assert.Equal(t, 1, zero.Day.Sessions)
	assert.Equal(t, 0, zero.Day.Accuracy, "no division by zero")
}

func TestAggregateRoundsAccuracy(t *testing.T) {
	got := Aggregate([]domain.StudySession{session(ref, 3, 2, 1, 0)}, ref)
	assert.Equal(t, 67, got.Day.Accuracy)
}

func TestRecordSnapshot(t *testing.T) {
	t.Run("appends new day", func(t *testing.T) {
		history := []domain.OverdueSnapshot{{Date: "2025-06-14", Count: 3}}

		got, changed := RecordSnapshot(history, 5, ref, DefaultHistoryLimit)

		assert.True(t, changed)
		assert.Equal(t, []domain.OverdueSnapshot{{Date: "2025-06-14", Count: 3}, {Date: "2025-06-15", Count: 5}}, got)
		assert.Len(t, history, 1, "input must not change")
	})

	t.Run("rewrites today in place", func(t *testing.T) {
		history := []domain.OverdueSnapshot{{Date: "2025-06-14", Count: 3}, {Date: "2025-06-15", Count: 5}}

		got, changed := RecordSnapshot(history, 2, ref, DefaultHistoryLimit)

		assert.True(t, changed)
		assert.Equal(t, []domain.OverdueSnapshot{{Date: "2025-06-14", Count: 3}, {Date: "2025-06-15", Count: 2}}, got)
		assert.Equal(t, 5, history[1].Count, "input must not change")
	})

	t.Run("same count is a no-op", func(t *testing.T) {
		history := []domain.OverdueSnapshot{{Date: "2025-06-15", Count: 5}}

		got, changed := RecordSnapshot(history, 5, ref, DefaultHistoryLimit)

		assert.False(t, changed)
		assert.Equal(t, history, got)
	})

	t.Run("unsorted history is ordered", func(t *testing.T) {
		history := []domain.OverdueSnapshot{{Date: "2025-06-12", Count: 1}, {Date: "2025-06-10", Count: 4}}

		got, _ := RecordSnapshot(history, 0, ref, DefaultHistoryLimit)

		require.Len(t, got, 3)
		assert.Equal(t, "2025-06-10", got[0].Date)
		assert.Equal(t, "2025-06-15", got[2].Date)
	})
}

func TestRecordSnapshotRetainsThirtyDays(t *testing.T) {
	start := time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)
	var history []domain.OverdueSnapshot

	for i := 0; i < 40; i++ {
		var changed bool
		history, changed = RecordSnapshot(history, i+1, start.AddDate(0, 0, i), DefaultHistoryLimit)
		require.True(t, changed)
	}

	require.Len(t, history, 30)
	assert.Equal(t, "2025-01-11", history[0].Date, "earliest 10 days are discarded")
	assert.Equal(t, 11, history[0].Count)
	assert.Equal(t, "2025-02-09", history[29].Date)
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].Date, history[i].Date)
	}
}
