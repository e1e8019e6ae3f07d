package relay

import (
	"net/http"
	"time"

	"github.com/studyroomhq/studyroom/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a command sent by a connected client. Exactly one of the
// payload fields is set.
type ClientMessage struct {
	BaseMessage
	Join         *Join         `json:"join,omitempty"`
	Leave        *Leave        `json:"leave,omitempty"`
	Timer        *TimerCommand `json:"timer,omitempty"`
	HostTransfer *HostTransfer `json:"host_transfer,omitempty"`
	EndRoom      *EndRoom      `json:"end_room,omitempty"`
	UserId       int           `json:"-"`
	client       *Client       `json:"-"`
}

type Join struct {
	RoomId int `json:"room_id"`
}

type Leave struct {
	RoomId int `json:"room_id"`
}

// Timer actions accepted over the wire.
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionReset    = "reset"
	ActionComplete = "complete"
)

type TimerCommand struct {
	RoomId int    `json:"room_id"`
	Action string `json:"action"`
}

type HostTransfer struct {
	RoomId    int `json:"room_id"`
	NewHostId int `json:"new_host_id"`
}

type EndRoom struct {
	RoomId int `json:"room_id"`
}

// ServerMessage is either a direct response to a command (addressed to the
// caller only) or an event fanned out to every connection in a room.
type ServerMessage struct {
	BaseMessage
	Response   *Response `json:"response,omitempty"`
	Event      *Event    `json:"event,omitempty"`
	SkipClient *Client   `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// Event carries exactly one broadcast payload. Timer events carry the
// absolute timestamps clients need to rebuild their local countdown; a bare
// acknowledgment would leave the other subscribers stale.
type Event struct {
	Connected         *Connected         `json:"connected,omitempty"`
	Presence          *PresenceUpdate    `json:"presence,omitempty"`
	TimerStarted      *TimerStarted      `json:"timer_started,omitempty"`
	TimerPaused       *TimerPaused       `json:"timer_paused,omitempty"`
	TimerReset        *TimerReset        `json:"timer_reset,omitempty"`
	TimerCompleted    *TimerCompleted    `json:"timer_completed,omitempty"`
	ParticipantJoined *ParticipantJoined `json:"participant_joined,omitempty"`
	ParticipantLeft   *ParticipantLeft   `json:"participant_left,omitempty"`
	HostTransferred   *HostTransferred   `json:"host_transferred,omitempty"`
	RoomEnded         *RoomEnded         `json:"room_ended,omitempty"`
}

type Connected struct {
	UserId int    `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type PresenceUpdate struct {
	RoomId      int   `json:"room_id"`
	OnlineUsers []int `json:"online_users"`
}

type TimerStarted struct {
	RoomId    int       `json:"room_id"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   int       `json:"elapsed"`
	Duration  int       `json:"duration"`
}

type TimerPaused struct {
	RoomId   int       `json:"room_id"`
	PausedAt time.Time `json:"paused_at"`
	Elapsed  int       `json:"elapsed"`
}

type TimerReset struct {
	RoomId   int `json:"room_id"`
	Duration int `json:"duration"`
}

type TimerCompleted struct {
	RoomId   int `json:"room_id"`
	Duration int `json:"duration"`
}

type ParticipantJoined struct {
	RoomId      int               `json:"room_id"`
	Participant types.Participant `json:"participant"`
}

type ParticipantLeft struct {
	RoomId int `json:"room_id"`
	UserId int `json:"user_id"`
}

type HostTransferred struct {
	RoomId    int `json:"room_id"`
	NewHostId int `json:"new_host_id"`
}

type RoomEnded struct {
	RoomId int `json:"room_id"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "room not found")
}

func ErrNotAuthorized(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusForbidden, msg)
}

func ErrInvalidState(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusConflict, msg)
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := errResponse(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

func errResponse(id, code int, errMsg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        errMsg,
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
