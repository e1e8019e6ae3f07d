package clientsync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/studyroomhq/studyroom/internal/timer"
)

func TestCountdownFollowsServerEvents(t *testing.T) {
	clock := clockwork.NewFakeClock()
	now := clock.Now().UTC()

	c := FromSnapshot(timer.Snapshot{
		Status:   timer.StatusWaiting,
		Duration: 1500,
		TimeLeft: 1500,
	}, now)

	assert.Equal(t, timer.StatusWaiting, c.Status())
	assert.Equal(t, 1500, c.Remaining(clock.Now()))

	c.ApplyStarted(clock.Now().UTC(), 0, 1500)
	clock.Advance(10 * time.Second)
	assert.Equal(t, 1490, c.Remaining(clock.Now()))

	c.ApplyPaused(clock.Now().UTC(), 10)
	clock.Advance(time.Hour)
	assert.Equal(t, 1490, c.Remaining(clock.Now()))

	c.ApplyStarted(clock.Now().UTC(), 10, 1500)
	clock.Advance(5 * time.Second)
	assert.Equal(t, 1485, c.Remaining(clock.Now()))

	c.ApplyReset(1500)
	assert.Equal(t, timer.StatusWaiting, c.Status())
	assert.Equal(t, 1500, c.Remaining(clock.Now()))
}

func TestCountdownLocalZeroIsNotCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()

	c := FromSnapshot(timer.Snapshot{Status: timer.StatusWaiting, Duration: 5, TimeLeft: 5}, clock.Now().UTC())
	c.ApplyStarted(clock.Now().UTC(), 0, 5)

	clock.Advance(10 * time.Second)

	assert.Equal(t, 0, c.Remaining(clock.Now()))
	assert.Equal(t, timer.StatusActive, c.Status())
	assert.True(t, c.AwaitingCompletion(clock.Now()))

	c.ApplyCompleted()
	assert.Equal(t, timer.StatusCompleted, c.Status())
	assert.False(t, c.AwaitingCompletion(clock.Now()))
	assert.Equal(t, 0, c.Remaining(clock.Now()))
}

func TestCountdownReconnectReconciles(t *testing.T) {
	clock := clockwork.NewFakeClock()
	started := clock.Now().UTC()
	clock.Advance(30 * time.Second)

	// a reconnect snapshot carries the absolute start, so the countdown
	// lands on the server's remaining time, not a stale local guess
	c := FromSnapshot(timer.Snapshot{
		Status:    timer.StatusActive,
		Duration:  1500,
		StartedAt: &started,
		TimeLeft:  1470,
	}, clock.Now().UTC())

	assert.Equal(t, 1470, c.Remaining(clock.Now()))
	clock.Advance(70 * time.Second)
	assert.Equal(t, 1400, c.Remaining(clock.Now()))
}
