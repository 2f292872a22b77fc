package model

import (
	"errors"
	"fmt"
)

// Status represents the download status of a harvested link
type Status string

const (
	// StatusPending means the link was collected but not yet attempted
	StatusPending Status = "pending"

	// StatusCompleted means the content was downloaded successfully
	StatusCompleted Status = "completed"

	// StatusFailed means the last download attempt failed
	StatusFailed Status = "failed"
)

// ErrInvalidTransition is returned when a status change is not in the
// allowed transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions is the closed transition table. Completed is terminal.
// A failed record may fail again on a later retry.
var allowedTransitions = map[Status][]Status{
	StatusPending: {StatusCompleted, StatusFailed},
	StatusFailed:  {StatusCompleted, StatusFailed},
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the known values
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusFailed
}

// IsRetryable returns true if a record in this status is eligible for a
// download attempt.
func (s Status) IsRetryable() bool {
	return s == StatusPending || s == StatusFailed
}

// IsTerminal returns true if no further transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// CanTransition returns true if the transition from s to next is allowed
func (s Status) CanTransition(next Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition validates the transition from s to next and returns next, or
// ErrInvalidTransition if the change is not allowed.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Glyph returns the single-character status marker used in listings
func (s Status) Glyph() string {
	switch s {
	case StatusCompleted:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusPending:
		return "⏳"
	default:
		return "?"
	}
}
