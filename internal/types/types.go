package types

import (
	"time"

	"github.com/studyroomhq/studyroom/internal/timer"
)

type User struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

type Room struct {
	Id              int            `json:"id"`
	Name            string         `json:"name"`
	HostId          int            `json:"host_id"`
	InviteCode      string         `json:"invite_code"`
	MaxParticipants int            `json:"max_participants"`
	IsPublic        bool           `json:"is_public"`
	Timer           timer.Snapshot `json:"timer"`
	Participants    []Participant  `json:"participants,omitempty"`
	IsHost          bool           `json:"is_host"`
	IsParticipant   bool           `json:"is_participant"`
	CreatedAt       time.Time      `json:"created_at,omitempty"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
}

type Participant struct {
	Id              int        `json:"id"`
	RoomId          int        `json:"room_id"`
	User            User       `json:"user"`
	Role            Role       `json:"role"`
	TotalFocusTime  int        `json:"total_focus_time"`
	CompletedRounds int        `json:"completed_rounds"`
	JoinedAt        time.Time  `json:"joined_at,omitempty"`
	LeftAt          *time.Time `json:"left_at,omitempty"`
}

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestAccepted JoinRequestStatus = "accepted"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

type JoinRequest struct {
	Id          int               `json:"id"`
	RoomId      int               `json:"room_id"`
	User        User              `json:"user"`
	Status      JoinRequestStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
	RespondedAt *time.Time        `json:"responded_at,omitempty"`
}

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

type Friend struct {
	Id         int        `json:"id"`
	User       User       `json:"user"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// FriendRequest is a pending friendship seen from one side. User is the
// counterpart: the sender on incoming listings, the recipient on the
// response to sending one.
type FriendRequest struct {
	Id        int              `json:"id"`
	User      User             `json:"user"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

type Category struct {
	Id        int       `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type FocusSession struct {
	Id          int       `json:"id"`
	CategoryId  *int      `json:"category_id,omitempty"`
	Duration    int       `json:"duration"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
