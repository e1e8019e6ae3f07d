package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/testutil"
	"github.com/studyroomhq/studyroom/internal/types"
)

func newRoutingClient(t *testing.T) (*Client, *RoomServer) {
	rs := newTestServer(t, &database.MockStudyRoomRepository{})
	c := &Client{
		id:     rs.nextConnId(),
		server: rs,
		log:    testutil.TestLogger(t),
		user:   types.User{Id: 10},
		send:   make(chan *ServerMessage, 8),
		stop:   make(chan struct{}),
	}
	return c, rs
}

func TestJoinRoomForwardsToServer(t *testing.T) {
	c, rs := newRoutingClient(t)

	msg := &ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Join:        &Join{RoomId: 1},
		UserId:      10,
		client:      c,
	}
	c.joinRoom(msg)

	select {
	case got := <-rs.joinChan:
		assert.Same(t, msg, got)
	default:
		t.Fatal("expected join to be queued on the server")
	}
}

func TestLeaveRoomWithoutJoin(t *testing.T) {
	c, _ := newRoutingClient(t)

	c.leaveRoom(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Leave:       &Leave{RoomId: 1},
		UserId:      10,
		client:      c,
	})

	msg := <-c.send
	require.NotNil(t, msg.Response)
	assert.Equal(t, 404, msg.Response.ResponseCode)
}

func TestRouteToRoomRequiresMembership(t *testing.T) {
	c, _ := newRoutingClient(t)

	c.routeToRoom(&ClientMessage{
		BaseMessage: BaseMessage{Id: 3},
		Timer:       &TimerCommand{RoomId: 1, Action: ActionStart},
		UserId:      10,
		client:      c,
	}, 1)

	msg := <-c.send
	require.NotNil(t, msg.Response)
	assert.Equal(t, 404, msg.Response.ResponseCode)
}

func TestRouteToRoomForwardsToActor(t *testing.T) {
	c, rs := newRoutingClient(t)

	room := &Room{
		id:      1,
		rs:      rs,
		cmdChan: make(chan *ClientMessage, 1),
		clients: make(map[*Client]struct{}),
	}
	c.setRoom(room)

	msg := &ClientMessage{
		BaseMessage: BaseMessage{Id: 4},
		Timer:       &TimerCommand{RoomId: 1, Action: ActionPause},
		UserId:      10,
		client:      c,
	}
	c.routeToRoom(msg, 1)

	select {
	case got := <-room.cmdChan:
		assert.Same(t, msg, got)
	default:
		t.Fatal("expected command to reach the room actor")
	}
}

func TestQueueMessageDropsWhenFull(t *testing.T) {
	c, _ := newRoutingClient(t)
	c.send = make(chan *ServerMessage, 1)

	require.True(t, c.queueMessage(NoErrOK(1, nil)))
	assert.False(t, c.queueMessage(NoErrOK(2, nil)))
}

func TestDelRoomIgnoresStaleRoom(t *testing.T) {
	c, rs := newRoutingClient(t)

	current := &Room{id: 1, rs: rs}
	c.setRoom(current)
	c.delRoom(2)
	assert.Same(t, current, c.getRoom())

	c.delRoom(1)
	assert.Nil(t, c.getRoom())
}
