// Package trend rolls completed study sessions up into day, month and year
// summaries and keeps the daily overdue-count history.
package trend

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/srs"
)

// DefaultHistoryLimit is the number of daily overdue snapshots kept.
const DefaultHistoryLimit = 30

// Timeframe totals the sessions that fall inside one window.
type Timeframe struct {
	Sessions       int
	CardsStudied   int
	CorrectAnswers int
	Minutes        float64
	OverdueReviews int
	Accuracy       int // percent, rounded
}

// Summary holds the windows anchored at a reference date.
type Summary struct {
	Day   Timeframe
	Month Timeframe
	Year  Timeframe
}

// Aggregate sums sessions over the reference date's calendar day, month and
// year, each as a half-open [start, end) window in ref's location.
func Aggregate(sessions []domain.StudySession, ref time.Time) Summary {
	dayStart := srs.DayStart(ref)
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	yearStart := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())

	return Summary{
		Day:   summarize(sessions, dayStart, dayStart.AddDate(0, 0, 1)),
		Month: summarize(sessions, monthStart, monthStart.AddDate(0, 1, 0)),
		Year:  summarize(sessions, yearStart, yearStart.AddDate(1, 0, 0)),
	}
}

func summarize(sessions []domain.StudySession, start, end time.Time) Timeframe {
	var tf Timeframe
	for _, s := range sessions {
		if s.Date.Before(start) || !s.Date.Before(end) {
			continue
		}
		tf.Sessions++
		tf.CardsStudied += s.CardsStudied
		tf.CorrectAnswers += s.CorrectAnswers
		tf.Minutes += max(s.TotalTime, 0)
		tf.OverdueReviews += s.OverdueReviews
	}
	if tf.CardsStudied > 0 {
		tf.Accuracy = int(math.Round(float64(tf.CorrectAnswers) / float64(tf.CardsStudied) * 100))
	}
	return tf
}

// RecordSnapshot upserts today's overdue count into history and keeps the
// newest limit entries in chronological order. It reports false, returning
// history unchanged, when today's entry already holds count. The input slice
// is not modified.
func RecordSnapshot(history []domain.OverdueSnapshot, count int, now time.Time, limit int) ([]domain.OverdueSnapshot, bool) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	key := srs.DayKey(now)

	out := slices.Clone(history)
	idx := slices.IndexFunc(out, func(s domain.OverdueSnapshot) bool { return s.Date == key })
	if idx >= 0 {
		if out[idx].Count == count {
			return history, false
		}
		out[idx].Count = count
	} else {
		out = append(out, domain.OverdueSnapshot{Date: key, Count: count})
	}

	// Day keys are ISO dates, so lexical order is chronological.
	slices.SortStableFunc(out, func(a, b domain.OverdueSnapshot) int {
		return strings.Compare(a.Date, b.Date)
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, true
}
