// Package presence tracks which users currently hold an open connection into
// each room. The state is relay-local and best effort: it is rebuilt from
// scratch when the relay restarts and is used only for "who's online"
// display, never for authorization.
//
// Updates are addressed to the remaining occupants of a room. A departure
// that empties the room reports no update, since there is nobody left to
// deliver it to. Emptied rooms are pruned from the tracker.
package presence

import (
	"slices"
	"sync"
)

type connEntry struct {
	roomId int
	userId int
}

// Update describes the new online set of a room after a mutation.
type Update struct {
	RoomId      int
	OnlineUsers []int
}

// Tracker owns the connection-to-room and room-to-users maps. All mutation
// goes through Join, Leave and Disconnect under one lock, so concurrent
// connection events for the same room cannot lose updates.
type Tracker struct {
	mu    sync.Mutex
	conns map[string]connEntry
	// rooms maps room id to user id to the set of that user's connections.
	// A user online from two devices appears once in the online set.
	rooms map[int]map[int]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		conns: make(map[string]connEntry),
		rooms: make(map[int]map[int]map[string]struct{}),
	}
}

// Join associates the connection with the room, implicitly leaving any room
// the connection was previously in. It returns one update per affected room,
// the joined room last.
func (t *Tracker) Join(connId string, roomId, userId int) []Update {
	t.mu.Lock()
	defer t.mu.Unlock()

	var updates []Update
	if prev, ok := t.conns[connId]; ok && prev.roomId != roomId {
		if upd, changed := t.leaveLocked(connId); changed {
			updates = append(updates, upd)
		}
	}

	t.conns[connId] = connEntry{roomId: roomId, userId: userId}

	users := t.rooms[roomId]
	if users == nil {
		users = make(map[int]map[string]struct{})
		t.rooms[roomId] = users
	}
	if users[userId] == nil {
		users[userId] = make(map[string]struct{})
	}
	users[userId][connId] = struct{}{}

	updates = append(updates, Update{RoomId: roomId, OnlineUsers: t.onlineLocked(roomId)})
	return updates
}

// Leave removes the association between the connection and the room. The
// returned update is meaningful only when the second return value is true,
// which happens when the room's online set actually changed and someone is
// still in the room to hear about it.
func (t *Tracker) Leave(connId string, roomId int) (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.conns[connId]; !ok || entry.roomId != roomId {
		return Update{}, false
	}

	return t.leaveLocked(connId)
}

// Disconnect performs a leave for whatever room the connection was last in,
// then forgets the connection entirely.
func (t *Tracker) Disconnect(connId string) (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.conns[connId]; !ok {
		return Update{}, false
	}

	return t.leaveLocked(connId)
}

func (t *Tracker) leaveLocked(connId string) (Update, bool) {
	entry := t.conns[connId]
	delete(t.conns, connId)

	users := t.rooms[entry.roomId]
	if users == nil {
		return Update{}, false
	}

	userConns, ok := users[entry.userId]
	if !ok {
		return Update{}, false
	}

	delete(userConns, connId)
	if len(userConns) > 0 {
		// another connection from the same user remains, set unchanged
		return Update{}, false
	}

	delete(users, entry.userId)
	if len(users) == 0 {
		delete(t.rooms, entry.roomId)
		return Update{}, false
	}

	return Update{RoomId: entry.roomId, OnlineUsers: t.onlineLocked(entry.roomId)}, true
}

// OnlineUsers returns the sorted online set for a room, empty if untracked.
func (t *Tracker) OnlineUsers(roomId int) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.onlineLocked(roomId)
}

func (t *Tracker) onlineLocked(roomId int) []int {
	users := t.rooms[roomId]
	online := make([]int, 0, len(users))
	for userId := range users {
		online = append(online, userId)
	}
	slices.Sort(online)
	return online
}
