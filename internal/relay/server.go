package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/presence"
	"github.com/studyroomhq/studyroom/internal/stats"
	"github.com/studyroomhq/studyroom/internal/types"
)

type unloadRoomRequest struct {
	roomId int
	ended  bool
}

type roomExec struct {
	roomId int
	req    *timerActionReq
}

type notifyReq struct {
	roomId int
	msg    *ServerMessage
}

// RoomServer owns the set of connected clients and the set of loaded room
// actors. Rooms are loaded lazily on first use and unload themselves when
// idle; the server's run loop is the only goroutine that touches the rooms
// map.
type RoomServer struct {
	log            *log.Logger
	db             database.StudyRoomRepository
	stats          stats.StatsProvider
	presence       *presence.Tracker
	clock          clockwork.Clock
	clients        map[*Client]struct{}
	clientsLock    sync.RWMutex
	rooms          map[int]*Room
	joinChan       chan *ClientMessage
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan unloadRoomRequest
	execChan       chan *roomExec
	notifyReqChan  chan *notifyReq
	connSeq        atomic.Int64
	stop           chan struct{}
	done           chan struct{}
}

func NewRoomServer(db database.StudyRoomRepository, l *log.Logger, sp stats.StatsProvider) *RoomServer {
	sp.RegisterMetric(stats.ActiveConnections)
	sp.RegisterMetric(stats.LoadedRooms)
	sp.RegisterMetric(stats.TimerTransitions)
	sp.RegisterMetric(stats.BroadcastMessages)

	return &RoomServer{
		log:            l,
		db:             db,
		stats:          sp,
		presence:       presence.NewTracker(),
		clock:          clockwork.NewRealClock(),
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[int]*Room),
		joinChan:       make(chan *ClientMessage, 32),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan unloadRoomRequest, 32),
		execChan:       make(chan *roomExec, 32),
		notifyReqChan:  make(chan *notifyReq, 64),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (rs *RoomServer) Run() {
	defer close(rs.done)

	for {
		select {
		case client := <-rs.RegisterChan:
			rs.registerClient(client)
		case client := <-rs.deRegisterChan:
			rs.deRegisterClient(client)
		case msg := <-rs.joinChan:
			rs.routeJoin(msg)
		case exec := <-rs.execChan:
			rs.routeExec(exec)
		case n := <-rs.notifyReqChan:
			rs.routeNotify(n)
		case req := <-rs.unloadRoomChan:
			rs.unloadRoom(req)
		case <-rs.stop:
			rs.shutdownRooms()
			return
		}
	}
}

func (rs *RoomServer) registerClient(c *Client) {
	rs.clientsLock.Lock()
	rs.clients[c] = struct{}{}
	rs.clientsLock.Unlock()

	rs.stats.Incr(stats.ActiveConnections)

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			Connected: &Connected{
				UserId: c.user.Id,
				Email:  c.user.EmailAddress,
				Name:   c.user.Name,
			},
		},
	})
}

func (rs *RoomServer) deRegisterClient(c *Client) {
	rs.clientsLock.Lock()
	_, ok := rs.clients[c]
	if ok {
		delete(rs.clients, c)
	}
	rs.clientsLock.Unlock()

	if !ok {
		return
	}

	rs.stats.Decr(stats.ActiveConnections)

	// backstop for connections that drop without leaving their room first
	if upd, changed := rs.presence.Disconnect(c.id); changed {
		rs.routeNotify(&notifyReq{roomId: upd.RoomId, msg: presenceMessage(upd)})
	}
}

func (rs *RoomServer) routeJoin(msg *ClientMessage) {
	room, err := rs.ensureRoom(msg.Join.RoomId)
	if err != nil {
		msg.client.queueMessage(joinError(msg.Id, err))
		return
	}

	select {
	case room.joinChan <- msg:
	default:
		msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (rs *RoomServer) routeExec(exec *roomExec) {
	room, err := rs.ensureRoom(exec.roomId)
	if err != nil {
		exec.req.reply <- timerActionResp{err: err}
		return
	}

	select {
	case room.actionChan <- exec.req:
	default:
		exec.req.reply <- timerActionResp{err: ErrRoomBusy}
	}
}

func (rs *RoomServer) routeNotify(n *notifyReq) {
	room, ok := rs.rooms[n.roomId]
	if !ok {
		// nobody is connected to an unloaded room, nothing to fan out
		return
	}

	select {
	case room.notifyChan <- n.msg:
	default:
		rs.log.Printf("notifyChan full for room %d", n.roomId)
	}
}

// ensureRoom returns the loaded actor for the room, starting one if needed.
// Rooms that do not exist or have ended are never loaded.
func (rs *RoomServer) ensureRoom(roomId int) (*Room, error) {
	if room, ok := rs.rooms[roomId]; ok {
		return room, nil
	}

	if _, err := rs.db.GetRoomById(roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomGone
		}
		return nil, err
	}

	room := &Room{
		id:         roomId,
		rs:         rs,
		joinChan:   make(chan *ClientMessage, 32),
		leaveChan:  make(chan *ClientMessage, 32),
		cmdChan:    make(chan *ClientMessage, 32),
		actionChan: make(chan *timerActionReq, 8),
		notifyChan: make(chan *ServerMessage, 64),
		clients:    make(map[*Client]struct{}),
		log:        rs.log,
		stats:      rs.stats,
		exit:       make(chan exitReq, 1),
		done:       make(chan struct{}),
	}

	rs.rooms[roomId] = room
	rs.stats.Incr(stats.LoadedRooms)
	go room.start()

	return room, nil
}

func (rs *RoomServer) unloadRoom(req unloadRoomRequest) {
	room, ok := rs.rooms[req.roomId]
	if !ok {
		return
	}

	delete(rs.rooms, req.roomId)
	rs.stats.Decr(stats.LoadedRooms)
	room.exit <- exitReq{ended: req.ended}
}

func (rs *RoomServer) shutdownRooms() {
	doneChan := make(chan int, len(rs.rooms))
	for _, room := range rs.rooms {
		room.exit <- exitReq{done: doneChan}
	}

	for range rs.rooms {
		id := <-doneChan
		delete(rs.rooms, id)
	}

	rs.clientsLock.Lock()
	for c := range rs.clients {
		c.stopClient()
		delete(rs.clients, c)
	}
	rs.clientsLock.Unlock()
}

// RegisterClient hands a freshly upgraded connection to the run loop.
func (rs *RoomServer) RegisterClient(c *Client) {
	rs.RegisterChan <- c
}

// TimerAction runs a timer transition through the room's actor on behalf of
// the HTTP control surface and waits for the outcome. The returned room
// carries the freshly persisted timer fields.
func (rs *RoomServer) TimerAction(ctx context.Context, roomId, userId int, action string) (database.Room, error) {
	req := &timerActionReq{
		userId: userId,
		action: action,
		reply:  make(chan timerActionResp, 1),
	}

	select {
	case rs.execChan <- &roomExec{roomId: roomId, req: req}:
	case <-ctx.Done():
		return database.Room{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.room, resp.err
	case <-ctx.Done():
		return database.Room{}, ctx.Err()
	}
}

// NotifyParticipantJoined fans out a roster addition made over HTTP to the
// room's connected clients.
func (rs *RoomServer) NotifyParticipantJoined(roomId int, p types.Participant) {
	rs.notify(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			ParticipantJoined: &ParticipantJoined{RoomId: roomId, Participant: p},
		},
	})
}

func (rs *RoomServer) NotifyParticipantLeft(roomId, userId int) {
	rs.notify(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			ParticipantLeft: &ParticipantLeft{RoomId: roomId, UserId: userId},
		},
	})
}

func (rs *RoomServer) NotifyHostTransferred(roomId, newHostId int) {
	rs.notify(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			HostTransferred: &HostTransferred{RoomId: roomId, NewHostId: newHostId},
		},
	})
}

func (rs *RoomServer) NotifyRoomEnded(roomId int) {
	rs.notify(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			RoomEnded: &RoomEnded{RoomId: roomId},
		},
	})
}

func (rs *RoomServer) notify(roomId int, msg *ServerMessage) {
	select {
	case rs.notifyReqChan <- &notifyReq{roomId: roomId, msg: msg}:
	default:
		rs.log.Printf("notify queue full, dropping event for room %d", roomId)
	}
}

// UnloadRoom evicts a room's actor, disconnecting its clients from the room.
// Used after a room is ended over HTTP.
func (rs *RoomServer) UnloadRoom(ctx context.Context, roomId int, ended bool) error {
	select {
	case rs.unloadRoomChan <- unloadRoomRequest{roomId: roomId, ended: ended}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the run loop, exits every room actor and closes every
// client connection.
func (rs *RoomServer) Shutdown(ctx context.Context) error {
	close(rs.stop)

	select {
	case <-rs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnlineUsers reports the current online set for a room, for room detail
// responses.
func (rs *RoomServer) OnlineUsers(roomId int) []int {
	return rs.presence.OnlineUsers(roomId)
}

func (rs *RoomServer) nextConnId() string {
	return fmt.Sprintf("c%d", rs.connSeq.Add(1))
}

func joinError(id int, err error) *ServerMessage {
	if errors.Is(err, ErrRoomGone) {
		return ErrRoomNotFound(id)
	}
	return ErrInternalError(id)
}
