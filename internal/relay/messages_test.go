package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessageDecode(t *testing.T) {
	raw := `{"id":3,"timer":{"room_id":7,"action":"pause"}}`

	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, 3, msg.Id)
	require.NotNil(t, msg.Timer)
	assert.Equal(t, 7, msg.Timer.RoomId)
	assert.Equal(t, ActionPause, msg.Timer.Action)
	assert.Nil(t, msg.Join)
	assert.Nil(t, msg.HostTransfer)
}

func TestServerMessageEncodeOmitsEmptyEvents(t *testing.T) {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Id: 1, Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		Event: &Event{
			TimerStarted: &TimerStarted{
				RoomId:    7,
				StartedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
				Duration:  1500,
			},
		},
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	event := decoded["event"].(map[string]any)
	assert.Contains(t, event, "timer_started")
	assert.NotContains(t, event, "timer_paused")
	assert.NotContains(t, event, "presence")
}

func TestErrResponseHelpers(t *testing.T) {
	tt := []struct {
		name     string
		msg      *ServerMessage
		wantCode int
	}{
		{"room not found", ErrRoomNotFound(1), 404},
		{"not authorized", ErrNotAuthorized(1, "nope"), 403},
		{"invalid state", ErrInvalidState(1, "bad transition"), 409},
		{"internal", ErrInternalError(1), 500},
		{"unavailable", ErrServiceUnavailable(1), 503},
		{"invalid message", ErrInvalidMessage(1), 400},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.msg.Response)
			assert.Equal(t, tc.wantCode, tc.msg.Response.ResponseCode)
			assert.NotEmpty(t, tc.msg.Response.Error)
			assert.Equal(t, 1, tc.msg.Id)
		})
	}
}

func TestNowIsUTCWithMillisecondPrecision(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%int(time.Millisecond))
}
