// Package clientsync rebuilds a local countdown from the relay's
// authoritative timer events. The countdown only derives display state; when
// it reaches zero the owner waits for the server's completion event instead
// of completing locally.
package clientsync

import (
	"time"

	"github.com/studyroomhq/studyroom/internal/timer"
)

type Countdown struct {
	state timer.State
}

// FromSnapshot seeds the countdown from a join or reconnect snapshot.
func FromSnapshot(s timer.Snapshot, now time.Time) *Countdown {
	c := &Countdown{
		state: timer.State{
			Status:    s.Status,
			Duration:  s.Duration,
			Elapsed:   s.Elapsed,
			StartedAt: s.StartedAt,
		},
	}

	// a stale snapshot of an active timer is reconciled against the local
	// clock, not trusted as-is
	if s.Status == timer.StatusActive && s.StartedAt == nil {
		started := now.Add(-time.Duration(s.Duration-s.TimeLeft) * time.Second)
		c.state.StartedAt = &started
		c.state.Elapsed = 0
	}

	return c
}

func (c *Countdown) ApplyStarted(startedAt time.Time, elapsed, duration int) {
	c.state = timer.State{
		Status:    timer.StatusActive,
		Duration:  duration,
		Elapsed:   elapsed,
		StartedAt: &startedAt,
	}
}

func (c *Countdown) ApplyPaused(pausedAt time.Time, elapsed int) {
	c.state = timer.State{
		Status:   timer.StatusPaused,
		Duration: c.state.Duration,
		Elapsed:  elapsed,
		PausedAt: &pausedAt,
	}
}

func (c *Countdown) ApplyReset(duration int) {
	c.state = timer.State{
		Status:   timer.StatusWaiting,
		Duration: duration,
	}
}

func (c *Countdown) ApplyCompleted() {
	c.state = timer.Complete(c.state)
}

func (c *Countdown) Status() timer.Status {
	return c.state.Status
}

// Remaining reports the whole seconds left on the local rendering of the
// countdown, never negative.
func (c *Countdown) Remaining(now time.Time) int {
	return timer.TimeLeft(c.state, now)
}

// AwaitingCompletion reports that the local countdown has hit zero while the
// last authoritative status is still active. The owner should keep waiting
// for the server's completion event.
func (c *Countdown) AwaitingCompletion(now time.Time) bool {
	return c.state.Status == timer.StatusActive && c.Remaining(now) == 0
}

func (c *Countdown) Snapshot(now time.Time) timer.Snapshot {
	return timer.Take(c.state, now)
}
