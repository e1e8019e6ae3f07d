// Package timer implements the room timer state machine. It is pure
// state-transition logic shared by the realtime relay and the HTTP timer
// endpoint so the two control paths cannot diverge.
package timer

import (
	"fmt"
	"time"
)

// Status is the room timer's lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ErrInvalidTransition is returned when a transition is requested that is not
// legal for the current status.
type ErrInvalidTransition struct {
	From   Status
	Action string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s timer while %s", e.Action, e.From)
}

// State holds the durable timer fields of a room. Elapsed is the number of
// seconds banked from prior active intervals; StartedAt is non-nil if and
// only if Status is StatusActive.
type State struct {
	Status    Status
	Duration  int
	Elapsed   int
	StartedAt *time.Time
	PausedAt  *time.Time
}

// Snapshot is a derived, point-in-time view of a timer.
type Snapshot struct {
	Status    Status     `json:"status"`
	Duration  int        `json:"duration"`
	Elapsed   int        `json:"elapsed"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	TimeLeft  int        `json:"time_left"`
}

// Start begins or resumes the countdown. Legal from waiting or paused.
func Start(s State, now time.Time) (State, error) {
	switch s.Status {
	case StatusWaiting, StatusPaused:
	default:
		return s, &ErrInvalidTransition{From: s.Status, Action: "start"}
	}

	s.Status = StatusActive
	s.StartedAt = &now
	s.PausedAt = nil
	return s, nil
}

// Pause banks the elapsed seconds of the current active interval. Legal only
// from active.
func Pause(s State, now time.Time) (State, error) {
	if s.Status != StatusActive || s.StartedAt == nil {
		return s, &ErrInvalidTransition{From: s.Status, Action: "pause"}
	}

	s.Elapsed += int(now.Sub(*s.StartedAt) / time.Second)
	s.Status = StatusPaused
	s.PausedAt = &now
	s.StartedAt = nil
	return s, nil
}

// Reset returns the timer to waiting with no banked time. Duration is
// unchanged. Legal from any state, and idempotent.
func Reset(s State) State {
	s.Status = StatusWaiting
	s.Elapsed = 0
	s.StartedAt = nil
	s.PausedAt = nil
	return s
}

// Complete terminates the round, pinning Elapsed to the full duration
// regardless of the time actually spent. Legal from any state.
func Complete(s State) State {
	s.Status = StatusCompleted
	s.Elapsed = s.Duration
	s.StartedAt = nil
	s.PausedAt = nil
	return s
}

// TimeLeft computes remaining whole seconds at the given instant. Never
// negative. A zero result while the status is active signals natural expiry,
// which only the relay's watchdog may act on.
func TimeLeft(s State, now time.Time) int {
	switch s.Status {
	case StatusWaiting:
		return s.Duration
	case StatusCompleted:
		return 0
	case StatusPaused:
		return max(0, s.Duration-s.Elapsed)
	case StatusActive:
		elapsed := s.Elapsed
		if s.StartedAt != nil {
			elapsed += int(now.Sub(*s.StartedAt) / time.Second)
		}
		return max(0, s.Duration-elapsed)
	default:
		return max(0, s.Duration-s.Elapsed)
	}
}

// Take returns the snapshot of s at the given instant.
func Take(s State, now time.Time) Snapshot {
	return Snapshot{
		Status:    s.Status,
		Duration:  s.Duration,
		Elapsed:   s.Elapsed,
		StartedAt: s.StartedAt,
		TimeLeft:  TimeLeft(s, now),
	}
}
