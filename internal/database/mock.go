package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStudyRoomRepository struct {
	mock.Mock
}

func (m *MockStudyRoomRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockStudyRoomRepository) CreateUser(params CreateUserParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyRoomRepository) GetUserById(id int) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyRoomRepository) GetUserByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyRoomRepository) GetRoomById(id int) (Room, error) {
	args := m.Called(id)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyRoomRepository) GetRoomByInviteCode(code string) (Room, error) {
	args := m.Called(code)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyRoomRepository) ListRoomsForUser(userId int) ([]RoomWithRole, error) {
	args := m.Called(userId)
	return args.Get(0).([]RoomWithRole), args.Error(1)
}
func (m *MockStudyRoomRepository) UpdateRoomTimer(roomId int, upd TimerUpdate) (Room, error) {
	args := m.Called(roomId, upd)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyRoomRepository) UpdateRoomHost(roomId, hostId int) error {
	args := m.Called(roomId, hostId)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) EndRoom(roomId int, endedAt time.Time) error {
	args := m.Called(roomId, endedAt)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) CreateParticipant(roomId, userId int, role string) (Participant, error) {
	args := m.Called(roomId, userId, role)
	return args.Get(0).(Participant), args.Error(1)
}
func (m *MockStudyRoomRepository) GetActiveParticipant(roomId, userId int) (Participant, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).(Participant), args.Error(1)
}
func (m *MockStudyRoomRepository) ListActiveParticipants(roomId int) ([]Participant, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Participant), args.Error(1)
}
func (m *MockStudyRoomRepository) CountActiveParticipants(roomId int) (int, error) {
	args := m.Called(roomId)
	return args.Int(0), args.Error(1)
}
func (m *MockStudyRoomRepository) LeaveRoom(participantId int, leftAt time.Time) error {
	args := m.Called(participantId, leftAt)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) UpdateParticipantRole(roomId, userId int, role string) error {
	args := m.Called(roomId, userId, role)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) CompleteRoomTimer(roomId, seconds int, upd TimerUpdate) (Room, error) {
	args := m.Called(roomId, seconds, upd)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyRoomRepository) CreateJoinRequest(roomId, userId int) (JoinRequest, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyRoomRepository) GetPendingJoinRequest(roomId, userId int) (JoinRequest, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyRoomRepository) GetJoinRequest(id int) (JoinRequest, error) {
	args := m.Called(id)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyRoomRepository) ListPendingJoinRequests(roomId int) ([]JoinRequest, error) {
	args := m.Called(roomId)
	return args.Get(0).([]JoinRequest), args.Error(1)
}
func (m *MockStudyRoomRepository) RespondJoinRequest(id int, status string, respondedAt time.Time) error {
	args := m.Called(id, status, respondedAt)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) CreateFriendRequest(userId, friendId int) (Friendship, error) {
	args := m.Called(userId, friendId)
	return args.Get(0).(Friendship), args.Error(1)
}
func (m *MockStudyRoomRepository) GetFriendship(userId, otherId int) (Friendship, error) {
	args := m.Called(userId, otherId)
	return args.Get(0).(Friendship), args.Error(1)
}
func (m *MockStudyRoomRepository) GetFriendRequest(id int) (Friendship, error) {
	args := m.Called(id)
	return args.Get(0).(Friendship), args.Error(1)
}
func (m *MockStudyRoomRepository) ListFriends(userId int) ([]FriendshipWithUser, error) {
	args := m.Called(userId)
	return args.Get(0).([]FriendshipWithUser), args.Error(1)
}
func (m *MockStudyRoomRepository) ListPendingFriendRequests(userId int) ([]FriendshipWithUser, error) {
	args := m.Called(userId)
	return args.Get(0).([]FriendshipWithUser), args.Error(1)
}
func (m *MockStudyRoomRepository) AcceptFriendRequest(id int, acceptedAt time.Time) error {
	args := m.Called(id, acceptedAt)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) DeleteFriendRequest(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) RemoveFriend(userId, friendId int) error {
	args := m.Called(userId, friendId)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) CreateCategory(params CreateCategoryParams) (Category, error) {
	args := m.Called(params)
	return args.Get(0).(Category), args.Error(1)
}
func (m *MockStudyRoomRepository) ListCategories(userId int) ([]Category, error) {
	args := m.Called(userId)
	return args.Get(0).([]Category), args.Error(1)
}
func (m *MockStudyRoomRepository) DeleteCategory(userId, categoryId int) error {
	args := m.Called(userId, categoryId)
	return args.Error(0)
}
func (m *MockStudyRoomRepository) CreateFocusSession(params CreateFocusSessionParams) (FocusSession, error) {
	args := m.Called(params)
	return args.Get(0).(FocusSession), args.Error(1)
}
func (m *MockStudyRoomRepository) ListFocusSessions(userId, limit int) ([]FocusSession, error) {
	args := m.Called(userId, limit)
	return args.Get(0).([]FocusSession), args.Error(1)
}
