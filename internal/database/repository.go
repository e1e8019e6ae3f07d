package database

import "time"

type StudyRoomRepository interface {
	Ping() error

	CreateUser(params CreateUserParams) (User, error)
	GetUserById(id int) (User, error)
	GetUserByEmail(email string) (User, error)

	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomById(id int) (Room, error)
	GetRoomByInviteCode(code string) (Room, error)
	ListRoomsForUser(userId int) ([]RoomWithRole, error)
	UpdateRoomTimer(roomId int, upd TimerUpdate) (Room, error)
	UpdateRoomHost(roomId, hostId int) error
	EndRoom(roomId int, endedAt time.Time) error

	CreateParticipant(roomId, userId int, role string) (Participant, error)
	GetActiveParticipant(roomId, userId int) (Participant, error)
	ListActiveParticipants(roomId int) ([]Participant, error)
	CountActiveParticipants(roomId int) (int, error)
	LeaveRoom(participantId int, leftAt time.Time) error
	UpdateParticipantRole(roomId, userId int, role string) error
	CompleteRoomTimer(roomId, seconds int, upd TimerUpdate) (Room, error)

	CreateJoinRequest(roomId, userId int) (JoinRequest, error)
	GetPendingJoinRequest(roomId, userId int) (JoinRequest, error)
	GetJoinRequest(id int) (JoinRequest, error)
	ListPendingJoinRequests(roomId int) ([]JoinRequest, error)
	RespondJoinRequest(id int, status string, respondedAt time.Time) error

	CreateFriendRequest(userId, friendId int) (Friendship, error)
	GetFriendship(userId, otherId int) (Friendship, error)
	GetFriendRequest(id int) (Friendship, error)
	ListFriends(userId int) ([]FriendshipWithUser, error)
	ListPendingFriendRequests(userId int) ([]FriendshipWithUser, error)
	AcceptFriendRequest(id int, acceptedAt time.Time) error
	DeleteFriendRequest(id int) error
	RemoveFriend(userId, friendId int) error

	CreateCategory(params CreateCategoryParams) (Category, error)
	ListCategories(userId int) ([]Category, error)
	DeleteCategory(userId, categoryId int) error
	CreateFocusSession(params CreateFocusSessionParams) (FocusSession, error)
	ListFocusSessions(userId, limit int) ([]FocusSession, error)
}
