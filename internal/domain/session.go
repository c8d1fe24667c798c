package domain

import "time"

// StudySession is the immutable record of one completed study run.
// TotalTime is in minutes and may be fractional.
type StudySession struct {
	ID             string
	Date           time.Time
	CardsStudied   int
	CorrectAnswers int
	TotalTime      float64
	OverdueReviews int
}

// OverdueSnapshot is the number of overdue cards observed on a calendar day.
// Date is a "2006-01-02" day key.
type OverdueSnapshot struct {
	Date  string
	Count int
}
