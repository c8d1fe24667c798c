// Package srs implements the level-based spaced-repetition engine: the
// interval schedule, review outcomes, urgency classification, the overdue
// penalty sweep and review queue selection.
//
// Every function is pure over its inputs. Anything that depends on the
// current time takes it as a parameter so callers decide which clock to use.
package srs

import (
	"errors"
	"fmt"
	"time"
)

// Params holds the tunables of the scheduling engine.
type Params struct {
	Intervals       []int // days until the next review, indexed by level
	LongOverdueDays int   // overdue days at which a card counts as long overdue
	DueSoonDays     int   // days ahead that still count as due soon
	PenaltyStepDays int   // each full step of overdue days costs one level
}

// DefaultParams returns the reference schedule: 0, 1, 3, 7, 14 and 28 days.
func DefaultParams() *Params {
	return &Params{
		Intervals:       []int{0, 1, 3, 7, 14, 28},
		LongOverdueDays: 7,
		DueSoonDays:     3,
		PenaltyStepDays: 3,
	}
}

// ErrInvalidParams is returned by Validate.
var ErrInvalidParams = errors.New("srs: invalid parameters")

// Validate checks that the schedule is usable.
func (p *Params) Validate() error {
	if len(p.Intervals) == 0 {
		return fmt.Errorf("%w: schedule has no levels", ErrInvalidParams)
	}
	for i, days := range p.Intervals {
		if days < 0 {
			return fmt.Errorf("%w: interval for level %d is negative", ErrInvalidParams, i)
		}
		if i > 0 && days < p.Intervals[i-1] {
			return fmt.Errorf("%w: interval for level %d is shorter than level %d", ErrInvalidParams, i, i-1)
		}
	}
	if p.LongOverdueDays < 1 {
		return fmt.Errorf("%w: long overdue days must be positive", ErrInvalidParams)
	}
	if p.DueSoonDays < 0 {
		return fmt.Errorf("%w: due soon days must not be negative", ErrInvalidParams)
	}
	if p.PenaltyStepDays < 1 {
		return fmt.Errorf("%w: penalty step days must be positive", ErrInvalidParams)
	}
	return nil
}

// MaxLevel is the mastery level. Reaching it with a correct answer marks a
// card as learned.
func (p *Params) MaxLevel() int {
	return len(p.Intervals) - 1
}

// ClampLevel forces level into [0, MaxLevel].
func (p *Params) ClampLevel(level int) int {
	return max(0, min(level, p.MaxLevel()))
}

// IntervalDays returns the interval for level. Levels past the end of the
// schedule reuse the last interval.
func (p *Params) IntervalDays(level int) int {
	if level < 0 {
		return p.Intervals[0]
	}
	if level >= len(p.Intervals) {
		return p.Intervals[len(p.Intervals)-1]
	}
	return p.Intervals[level]
}

// NextReviewDate advances ref by the level's interval in calendar days,
// keeping the time of day.
func (p *Params) NextReviewDate(level int, ref time.Time) time.Time {
	return ref.AddDate(0, 0, p.IntervalDays(level))
}
