package domain

import (
	"encoding"
	"fmt"
)

// Status is the lifecycle state of a card.
type Status int

const (
	StatusActive  Status = iota // Eligible for review.
	StatusLearned               // Mastered; hidden from queues until restored.
)

var statusNames = [...]string{StatusActive: "active", StatusLearned: "learned"}

var (
	_ fmt.Stringer             = Status(0)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

// String returns "active" or "learned".
func (s Status) String() string {
	if s == StatusLearned {
		return statusNames[StatusLearned]
	}
	return statusNames[StatusActive]
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Anything other than
// "learned" decodes as active, matching how legacy records without a status
// are treated.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// ParseStatus converts a stored status name into a Status.
func ParseStatus(name string) Status {
	if name == statusNames[StatusLearned] {
		return StatusLearned
	}
	return StatusActive
}
