package relay

import (
	"errors"
)

var (
	// ErrRoomGone covers rooms that do not exist and rooms that have ended;
	// the two are deliberately indistinguishable to callers.
	ErrRoomGone = errors.New("room not found")
	// ErrNotHost is returned when a non-host attempts a host-only command.
	ErrNotHost = errors.New("not the room host")
	// ErrNotParticipant is returned when a host transfer names a user who is
	// not an active participant of the room.
	ErrNotParticipant = errors.New("not an active participant")
	// ErrInvalidAction is returned for an unknown timer action.
	ErrInvalidAction = errors.New("invalid timer action")
	// ErrRoomBusy is returned when a room's command queue is full.
	ErrRoomBusy = errors.New("room is busy")
)
