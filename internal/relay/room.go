package relay

import (
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/presence"
	"github.com/studyroomhq/studyroom/internal/stats"
	"github.com/studyroomhq/studyroom/internal/timer"
	"github.com/studyroomhq/studyroom/internal/types"
)

// idleRoomTimeout is how long a room actor with no connected clients and no
// running countdown stays loaded before unloading itself.
const idleRoomTimeout = 30 * time.Second

type exitReq struct {
	ended bool
	done  chan int
}

type timerActionReq struct {
	userId int
	action string
	reply  chan timerActionResp
}

type timerActionResp struct {
	room database.Room
	err  error
}

// Room is the per-room actor. Every command for the room flows through its
// single goroutine, which serializes store reads, state-machine transitions
// and store writes; commands for different rooms run concurrently.
type Room struct {
	id          int
	rs          *RoomServer
	joinChan    chan *ClientMessage
	leaveChan   chan *ClientMessage
	cmdChan     chan *ClientMessage
	actionChan  chan *timerActionReq
	notifyChan  chan *ServerMessage
	clients     map[*Client]struct{}
	clientLock  sync.RWMutex
	log         *log.Logger
	stats       stats.StatsProvider
	killTimer   clockwork.Timer
	expiry      clockwork.Timer
	expiryArmed bool
	exit        chan exitReq
	done        chan struct{}
}

func (r *Room) start() {
	r.log.Printf("starting room %d", r.id)
	r.killTimer = r.rs.clock.NewTimer(idleRoomTimeout)
	r.expiry = r.rs.clock.NewTimer(time.Hour)
	stopAndDrainTimer(r.expiry)
	r.armExpiryFromStore()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.cmdChan:
			r.handleCommand(msg)
		case req := <-r.actionChan:
			r.handleAction(req)
		case msg := <-r.notifyChan:
			r.broadcast(msg)
		case <-r.killTimer.Chan():
			r.handleIdleTimeout()
		case <-r.expiry.Chan():
			r.expiryArmed = false
			r.handleExpiry()
		case e := <-r.exit:
			r.handleExit(e)
			return
		}
	}
}

// armExpiryFromStore re-arms the expiry watchdog after the actor is loaded,
// so an active countdown survives a room unload/reload cycle.
func (r *Room) armExpiryFromStore() {
	dbRoom, err := r.rs.db.GetRoomById(r.id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Printf("room %d: load timer state: %v", r.id, err)
		}
		return
	}

	state := dbRoom.TimerState()
	if state.Status == timer.StatusActive {
		r.armExpiry(timer.TimeLeft(state, r.rs.clock.Now()))
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	dbRoom, err := r.rs.db.GetRoomById(r.id)
	if err != nil {
		r.resetKillTimerIfEmpty()
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Println("GetRoomById:", err)
			c.queueMessage(ErrInternalError(join.Id))
			return
		}
		c.queueMessage(ErrRoomNotFound(join.Id))
		return
	}

	// private rooms mask their existence from non-participants
	if !dbRoom.IsPublic {
		if _, err := r.rs.db.GetActiveParticipant(r.id, c.user.Id); err != nil {
			r.resetKillTimerIfEmpty()
			if !errors.Is(err, sql.ErrNoRows) {
				r.log.Println("GetActiveParticipant:", err)
				c.queueMessage(ErrInternalError(join.Id))
				return
			}
			c.queueMessage(ErrRoomNotFound(join.Id))
			return
		}
	}

	participants, err := r.rs.db.ListActiveParticipants(r.id)
	if err != nil {
		r.resetKillTimerIfEmpty()
		r.log.Println("ListActiveParticipants:", err)
		c.queueMessage(ErrInternalError(join.Id))
		return
	}

	r.addClient(c)

	for _, upd := range r.rs.presence.Join(c.id, r.id, c.user.Id) {
		msg := presenceMessage(upd)
		if upd.RoomId == r.id {
			r.broadcast(msg)
		} else {
			// implicit leave of a different room; its own actor fans out
			r.rs.notify(upd.RoomId, msg)
		}
	}

	c.queueMessage(NoErrOK(join.Id, roomInfo(dbRoom, participants, c.user.Id, r.rs.clock.Now())))
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	c := leaveMsg.client
	r.removeClient(c)

	if upd, changed := r.rs.presence.Leave(c.id, r.id); changed {
		r.broadcast(presenceMessage(upd))
	}

	if leaveMsg.Id != 0 {
		c.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}

	r.resetKillTimerIfEmpty()
}

func (r *Room) handleCommand(msg *ClientMessage) {
	switch {
	case msg.Timer != nil:
		_, event, err := r.applyTimerAction(msg.UserId, msg.Timer.Action)
		if err != nil {
			msg.client.queueMessage(commandError(msg.Id, err))
			return
		}
		msg.client.queueMessage(NoErrOK(msg.Id, nil))
		r.broadcast(event)
	case msg.HostTransfer != nil:
		event, err := r.applyHostTransfer(msg.UserId, msg.HostTransfer.NewHostId)
		if err != nil {
			msg.client.queueMessage(commandError(msg.Id, err))
			return
		}
		msg.client.queueMessage(NoErrOK(msg.Id, nil))
		r.broadcast(event)
	case msg.EndRoom != nil:
		event, err := r.applyEndRoom(msg.UserId)
		if err != nil {
			msg.client.queueMessage(commandError(msg.Id, err))
			return
		}
		msg.client.queueMessage(NoErrOK(msg.Id, nil))
		r.broadcast(event)
		r.requestUnload(true)
	}
}

// handleAction executes a timer action arriving over the HTTP control
// surface. It shares applyTimerAction with the websocket path, so both
// transports run the identical state machine under the same serialization.
func (r *Room) handleAction(req *timerActionReq) {
	dbRoom, event, err := r.applyTimerAction(req.userId, req.action)
	req.reply <- timerActionResp{room: dbRoom, err: err}
	if err == nil {
		r.broadcast(event)
	}
}

// applyTimerAction loads the room, checks host authority, applies the state
// machine transition, persists the result and builds the broadcast event.
func (r *Room) applyTimerAction(userId int, action string) (database.Room, *ServerMessage, error) {
	dbRoom, err := r.rs.db.GetRoomById(r.id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, nil, ErrRoomGone
		}
		return database.Room{}, nil, err
	}

	if dbRoom.HostId != userId {
		return database.Room{}, nil, ErrNotHost
	}

	state := dbRoom.TimerState()
	now := r.rs.clock.Now().UTC()

	var newState timer.State
	switch action {
	case ActionStart:
		newState, err = timer.Start(state, now)
	case ActionPause:
		newState, err = timer.Pause(state, now)
	case ActionReset:
		newState = timer.Reset(state)
	case ActionComplete:
		newState = timer.Complete(state)
	default:
		return database.Room{}, nil, ErrInvalidAction
	}
	if err != nil {
		return database.Room{}, nil, err
	}

	upd := database.TimerUpdate{
		Status:    string(newState.Status),
		StartedAt: newState.StartedAt,
		PausedAt:  newState.PausedAt,
		Elapsed:   newState.Elapsed,
	}

	var updated database.Room
	if action == ActionComplete {
		// every still-present participant is credited with the full round,
		// atomically with the timer write
		updated, err = r.rs.db.CompleteRoomTimer(r.id, state.Duration, upd)
	} else {
		updated, err = r.rs.db.UpdateRoomTimer(r.id, upd)
	}
	if err != nil {
		return database.Room{}, nil, err
	}

	switch action {
	case ActionStart:
		r.armExpiry(timer.TimeLeft(newState, now))
	default:
		r.disarmExpiry()
	}

	r.stats.Incr(stats.TimerTransitions)
	return updated, r.timerEvent(action, newState, now), nil
}

func (r *Room) timerEvent(action string, state timer.State, now time.Time) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: now},
		Event:       &Event{},
	}

	switch action {
	case ActionStart:
		msg.Event.TimerStarted = &TimerStarted{
			RoomId:    r.id,
			StartedAt: *state.StartedAt,
			Elapsed:   state.Elapsed,
			Duration:  state.Duration,
		}
	case ActionPause:
		msg.Event.TimerPaused = &TimerPaused{
			RoomId:   r.id,
			PausedAt: *state.PausedAt,
			Elapsed:  state.Elapsed,
		}
	case ActionReset:
		msg.Event.TimerReset = &TimerReset{
			RoomId:   r.id,
			Duration: state.Duration,
		}
	case ActionComplete:
		msg.Event.TimerCompleted = &TimerCompleted{
			RoomId:   r.id,
			Duration: state.Duration,
		}
	}

	return msg
}

func (r *Room) applyHostTransfer(userId, newHostId int) (*ServerMessage, error) {
	dbRoom, err := r.rs.db.GetRoomById(r.id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomGone
		}
		return nil, err
	}

	if dbRoom.HostId != userId {
		return nil, ErrNotHost
	}

	if _, err := r.rs.db.GetActiveParticipant(r.id, newHostId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	if err := r.rs.db.UpdateRoomHost(r.id, newHostId); err != nil {
		return nil, err
	}
	if err := r.rs.db.UpdateParticipantRole(r.id, userId, string(types.RoleParticipant)); err != nil {
		return nil, err
	}
	if err := r.rs.db.UpdateParticipantRole(r.id, newHostId, string(types.RoleHost)); err != nil {
		return nil, err
	}

	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			HostTransferred: &HostTransferred{RoomId: r.id, NewHostId: newHostId},
		},
	}, nil
}

func (r *Room) applyEndRoom(userId int) (*ServerMessage, error) {
	dbRoom, err := r.rs.db.GetRoomById(r.id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomGone
		}
		return nil, err
	}

	if dbRoom.HostId != userId {
		return nil, ErrNotHost
	}

	if err := r.rs.db.EndRoom(r.id, r.rs.clock.Now().UTC()); err != nil {
		return nil, err
	}

	r.disarmExpiry()

	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			RoomEnded: &RoomEnded{RoomId: r.id},
		},
	}, nil
}

// handleExpiry fires when the watchdog armed on start runs out. The relay,
// not any client, owns natural completion: local countdowns reaching zero in
// browsers are display-only.
func (r *Room) handleExpiry() {
	dbRoom, err := r.rs.db.GetRoomById(r.id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.log.Printf("room %d: expiry check: %v", r.id, err)
		}
		r.resetKillTimerIfEmpty()
		return
	}

	state := dbRoom.TimerState()
	now := r.rs.clock.Now().UTC()
	if state.Status != timer.StatusActive {
		// stale fire, the timer was paused or reset in the meantime
		r.resetKillTimerIfEmpty()
		return
	}

	if left := timer.TimeLeft(state, now); left > 0 {
		r.armExpiry(left)
		return
	}

	newState := timer.Complete(state)
	if _, err := r.rs.db.CompleteRoomTimer(r.id, state.Duration, database.TimerUpdate{
		Status:  string(newState.Status),
		Elapsed: newState.Elapsed,
	}); err != nil {
		r.log.Printf("room %d: complete timer: %v", r.id, err)
		return
	}

	r.stats.Incr(stats.TimerTransitions)
	r.broadcast(r.timerEvent(ActionComplete, newState, now))
	r.resetKillTimerIfEmpty()
}

func (r *Room) handleIdleTimeout() {
	if r.expiryArmed {
		// a countdown is running with nobody connected; stay loaded so the
		// watchdog can complete it
		return
	}

	r.log.Printf("room %d idle, unloading", r.id)
	r.requestUnload(false)
}

func (r *Room) requestUnload(ended bool) {
	select {
	case r.rs.unloadRoomChan <- unloadRoomRequest{roomId: r.id, ended: ended}:
	default:
		r.log.Printf("unload channel full for room %d", r.id)
		r.killTimer.Reset(time.Second)
	}
}

func (r *Room) handleExit(e exitReq) {
	if e.ended {
		r.log.Printf("room %d ended, exiting", r.id)
	} else {
		r.log.Printf("room %d is exiting", r.id)
	}

	r.killTimer.Stop()
	r.disarmExpiry()

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.id)
		r.rs.presence.Leave(c.id, r.id)
	}
	r.clients = make(map[*Client]struct{})
	r.clientLock.Unlock()

	if e.done != nil {
		e.done <- r.id
	}
	close(r.done)
}

func (r *Room) armExpiry(secondsLeft int) {
	r.disarmExpiry()
	r.expiry.Reset(time.Duration(secondsLeft) * time.Second)
	r.expiryArmed = true
}

func (r *Room) disarmExpiry() {
	if r.expiryArmed {
		stopAndDrainTimer(r.expiry)
		r.expiryArmed = false
	}
}

// stopAndDrainTimer stops a timer and drains its channel so a stale fire
// cannot be mistaken for a live one.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.setRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.id)
}

func (r *Room) clientCount() int {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()
	return len(r.clients)
}

func (r *Room) resetKillTimerIfEmpty() {
	if r.clientCount() == 0 && !r.expiryArmed {
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) broadcast(msg *ServerMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = Now()
	}

	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
	r.stats.Incr(stats.BroadcastMessages)
}

func presenceMessage(upd presence.Update) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Event: &Event{
			Presence: &PresenceUpdate{RoomId: upd.RoomId, OnlineUsers: upd.OnlineUsers},
		},
	}
}

func commandError(id int, err error) *ServerMessage {
	var invalid *timer.ErrInvalidTransition
	switch {
	case errors.Is(err, ErrRoomGone):
		return ErrRoomNotFound(id)
	case errors.Is(err, ErrNotHost):
		return ErrNotAuthorized(id, "only the host can do that")
	case errors.Is(err, ErrNotParticipant):
		return ErrInvalidState(id, "new host is not an active participant")
	case errors.Is(err, ErrInvalidAction):
		return ErrInvalidMessage(id)
	case errors.As(err, &invalid):
		return ErrInvalidState(id, err.Error())
	default:
		return ErrInternalError(id)
	}
}

// roomInfo builds the join response: the room's current snapshot plus its
// active participant roster.
func roomInfo(dbRoom database.Room, participants []database.Participant, userId int, now time.Time) types.Room {
	room := types.Room{
		Id:              dbRoom.Id,
		Name:            dbRoom.Name,
		HostId:          dbRoom.HostId,
		InviteCode:      dbRoom.InviteCode,
		MaxParticipants: dbRoom.MaxParticipants,
		IsPublic:        dbRoom.IsPublic,
		Timer:           timer.Take(dbRoom.TimerState(), now),
		IsHost:          dbRoom.HostId == userId,
		CreatedAt:       dbRoom.CreatedAt,
		EndedAt:         dbRoom.EndedAt,
	}

	for _, p := range participants {
		if p.UserId == userId {
			room.IsParticipant = true
		}
		room.Participants = append(room.Participants, types.Participant{
			Id:     p.Id,
			RoomId: p.RoomId,
			User: types.User{
				Id:           p.UserId,
				Name:         p.UserName,
				EmailAddress: p.UserEmail,
			},
			Role:            types.Role(p.Role),
			TotalFocusTime:  p.TotalFocusTime,
			CompletedRounds: p.CompletedRounds,
			JoinedAt:        p.JoinedAt,
			LeftAt:          p.LeftAt,
		})
	}

	return room
}
