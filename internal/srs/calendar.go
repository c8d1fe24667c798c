package srs

import "time"

const day = 24 * time.Hour

// DayStart returns midnight of t's calendar day in t's location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextDayStart returns midnight of the day after t.
func NextDayStart(t time.Time) time.Time {
	// AddDate handles DST correctly, Add(24h) does not
	return DayStart(t).AddDate(0, 0, 1)
}

// SameDay reports whether t falls on ref's calendar day, judged in ref's location.
func SameDay(t, ref time.Time) bool {
	if t.IsZero() {
		return false
	}
	t = t.In(ref.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DayKey formats t's calendar day as "2006-01-02".
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
