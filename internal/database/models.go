package database

import (
	"time"

	"github.com/studyroomhq/studyroom/internal/timer"
)

type User struct {
	Id           int
	Name         string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
}

type Room struct {
	Id              int
	HostId          int
	Name            string
	InviteCode      string
	TimerDuration   int
	TimerStatus     string
	TimerStartedAt  *time.Time
	TimerPausedAt   *time.Time
	TimerElapsed    int
	MaxParticipants int
	IsPublic        bool
	CreatedAt       time.Time
	EndedAt         *time.Time
}

// TimerState assembles the room's durable timer fields into a state-machine
// state.
func (r Room) TimerState() timer.State {
	return timer.State{
		Status:    timer.Status(r.TimerStatus),
		Duration:  r.TimerDuration,
		Elapsed:   r.TimerElapsed,
		StartedAt: r.TimerStartedAt,
		PausedAt:  r.TimerPausedAt,
	}
}

// RoomWithRole is a room joined with the requesting user's participant role
// and the host's display fields.
type RoomWithRole struct {
	Room
	Role      string
	HostName  string
	HostEmail string
}

type Participant struct {
	Id              int
	RoomId          int
	UserId          int
	Role            string
	JoinedAt        time.Time
	LeftAt          *time.Time
	TotalFocusTime  int
	CompletedRounds int
	UserName        string
	UserEmail       string
}

type JoinRequest struct {
	Id          int
	RoomId      int
	UserId      int
	Status      string
	CreatedAt   time.Time
	RespondedAt *time.Time
	UserName    string
	UserEmail   string
}

// Friendship is a single row holding both the pending request and the
// accepted friendship. UserId is the sender, FriendId the recipient; a
// rejected request is deleted rather than kept.
type Friendship struct {
	Id         int
	UserId     int
	FriendId   int
	Status     string
	CreatedAt  time.Time
	AcceptedAt *time.Time
}

// FriendshipWithUser joins a friendship with the counterpart's display
// fields: the other user on friend listings, the sender on request listings.
type FriendshipWithUser struct {
	Friendship
	OtherUserId int
	OtherName   string
	OtherEmail  string
}

type Category struct {
	Id        int
	UserId    int
	Name      string
	Color     string
	CreatedAt time.Time
}

type FocusSession struct {
	Id          int
	UserId      int
	CategoryId  *int
	Duration    int
	StartedAt   time.Time
	CompletedAt time.Time
}

type CreateUserParams struct {
	Name         string
	EmailAddress string
	PasswordHash string
}

type CreateRoomParams struct {
	HostId          int
	Name            string
	InviteCode      string
	TimerDuration   int
	MaxParticipants int
	IsPublic        bool
}

// TimerUpdate carries the durable fields written by a timer transition.
type TimerUpdate struct {
	Status    string
	StartedAt *time.Time
	PausedAt  *time.Time
	Elapsed   int
}

type CreateCategoryParams struct {
	UserId int
	Name   string
	Color  string
}

type CreateFocusSessionParams struct {
	UserId      int
	CategoryId  *int
	Duration    int
	StartedAt   time.Time
	CompletedAt time.Time
}
