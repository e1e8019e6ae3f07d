package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/timer"
	"github.com/studyroomhq/studyroom/internal/types"
)

func testRoom() database.Room {
	return database.Room{
		Id:              1,
		HostId:          10,
		Name:            "deep work",
		InviteCode:      "abc123",
		TimerDuration:   1500,
		TimerStatus:     string(timer.StatusWaiting),
		MaxParticipants: 4,
		IsPublic:        true,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestCreateRoom(t *testing.T) {
	dbRoom := testRoom()

	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("CreateRoom", mock.MatchedBy(func(params database.CreateRoomParams) bool {
		return params.HostId == 10 && params.Name == "deep work" &&
			params.TimerDuration == 1500 && params.InviteCode == "fixed-id"
	})).Return(dbRoom, nil).Once()
	mockRepo.On("CreateParticipant", 1, 10, string(types.RoleHost)).
		Return(database.Participant{Id: 1, RoomId: 1, UserId: 10, Role: string(types.RoleHost), UserName: "host"}, nil).Once()

	app := newTestApp(t, mockRepo)
	app.generateShortId = func() (string, error) { return "fixed-id", nil }

	rr := httptest.NewRecorder()
	app.createRoom(rr, authedRequest(http.MethodPost, "/api/rooms", CreateRoomRequest{
		Name:            "deep work",
		MaxParticipants: 4,
		IsPublic:        true,
	}, 10))

	require.Equal(t, http.StatusCreated, rr.Code)
	var room types.Room
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
	assert.True(t, room.IsHost)
	assert.True(t, room.IsParticipant)
	assert.Equal(t, timer.StatusWaiting, room.Timer.Status)
	assert.Equal(t, 1500, room.Timer.TimeLeft)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, types.RoleHost, room.Participants[0].Role)
	mockRepo.AssertExpectations(t)
}

func TestCreateRoomRequiresName(t *testing.T) {
	app := newTestApp(t, &database.MockStudyRoomRepository{})

	rr := httptest.NewRecorder()
	app.createRoom(rr, authedRequest(http.MethodPost, "/api/rooms", CreateRoomRequest{}, 10))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetRoom(t *testing.T) {
	tcases := []struct {
		name          string
		isPublic      bool
		isParticipant bool
		wantStatus    int
	}{
		{
			name:          "public room visible to non-participant",
			isPublic:      true,
			isParticipant: false,
			wantStatus:    http.StatusOK,
		},
		{
			name:          "private room hidden from non-participant",
			isPublic:      false,
			isParticipant: false,
			wantStatus:    http.StatusNotFound,
		},
		{
			name:          "private room visible to participant",
			isPublic:      false,
			isParticipant: true,
			wantStatus:    http.StatusOK,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			dbRoom := testRoom()
			dbRoom.IsPublic = tc.isPublic

			mockRepo := &database.MockStudyRoomRepository{}
			mockRepo.On("GetRoomById", 1).Return(dbRoom, nil).Once()
			if tc.isParticipant {
				mockRepo.On("GetActiveParticipant", 1, 20).
					Return(database.Participant{Id: 2, RoomId: 1, UserId: 20}, nil).Once()
			} else {
				mockRepo.On("GetActiveParticipant", 1, 20).
					Return(database.Participant{}, sql.ErrNoRows).Once()
			}
			if tc.wantStatus == http.StatusOK {
				mockRepo.On("ListActiveParticipants", 1).Return([]database.Participant{
					{Id: 1, RoomId: 1, UserId: 10, Role: string(types.RoleHost), UserName: "host"},
				}, nil).Once()
			}

			app := newTestApp(t, mockRepo)
			req := authedRequest(http.MethodGet, "/api/rooms/1", nil, 20)
			req.SetPathValue("id", "1")
			rr := httptest.NewRecorder()
			app.getRoom(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus == http.StatusOK {
				var room types.Room
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
				assert.Equal(t, tc.isParticipant, room.IsParticipant)
				assert.False(t, room.IsHost)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGetRoomMissing(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 9).Return(database.Room{}, sql.ErrNoRows).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodGet, "/api/rooms/9", nil, 20)
	req.SetPathValue("id", "9")
	rr := httptest.NewRecorder()
	app.getRoom(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEndRoom(t *testing.T) {
	tcases := []struct {
		name       string
		userId     int
		wantStatus int
		ends       bool
	}{
		{"host ends room", 10, http.StatusNoContent, true},
		{"non-host gets not found", 20, http.StatusNotFound, false},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockStudyRoomRepository{}
			mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
			if tc.ends {
				mockRepo.On("EndRoom", 1, mock.Anything).Return(nil).Once()
			}

			app := newTestApp(t, mockRepo)
			req := authedRequest(http.MethodDelete, "/api/rooms/1", nil, tc.userId)
			req.SetPathValue("id", "1")
			rr := httptest.NewRecorder()
			app.endRoom(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			mockRepo.AssertExpectations(t)
			if !tc.ends {
				mockRepo.AssertNotCalled(t, "EndRoom", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestJoinRoom(t *testing.T) {
	tcases := []struct {
		name        string
		room        func() database.Room
		body        any
		participant error
		count       int
		wantStatus  int
		creates     bool
	}{
		{
			name:        "joins a public room",
			room:        testRoom,
			participant: sql.ErrNoRows,
			count:       1,
			wantStatus:  http.StatusCreated,
			creates:     true,
		},
		{
			name: "private room requires the invite code",
			room: func() database.Room {
				r := testRoom()
				r.IsPublic = false
				return r
			},
			participant: sql.ErrNoRows,
			wantStatus:  http.StatusNotFound,
		},
		{
			name: "private room with invite code",
			room: func() database.Room {
				r := testRoom()
				r.IsPublic = false
				return r
			},
			body:        JoinRoomRequest{InviteCode: "abc123"},
			participant: sql.ErrNoRows,
			count:       1,
			wantStatus:  http.StatusCreated,
			creates:     true,
		},
		{
			name:       "already a participant",
			room:       testRoom,
			wantStatus: http.StatusConflict,
		},
		{
			name:        "room at capacity",
			room:        testRoom,
			participant: sql.ErrNoRows,
			count:       4,
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockStudyRoomRepository{}
			mockRepo.On("GetRoomById", 1).Return(tc.room(), nil).Once()
			if tc.participant != nil {
				mockRepo.On("GetActiveParticipant", 1, 20).Return(database.Participant{}, tc.participant).Maybe()
			} else {
				mockRepo.On("GetActiveParticipant", 1, 20).
					Return(database.Participant{Id: 2, RoomId: 1, UserId: 20}, nil).Maybe()
			}
			if tc.count > 0 {
				mockRepo.On("CountActiveParticipants", 1).Return(tc.count, nil).Once()
			}
			if tc.creates {
				mockRepo.On("CreateParticipant", 1, 20, string(types.RoleParticipant)).
					Return(database.Participant{Id: 3, RoomId: 1, UserId: 20, Role: string(types.RoleParticipant)}, nil).Once()
			}

			app := newTestApp(t, mockRepo)
			req := authedRequest(http.MethodPost, "/api/rooms/1/join", tc.body, 20)
			req.SetPathValue("id", "1")
			rr := httptest.NewRecorder()
			app.joinRoom(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestLeaveRoomTransfersHost(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
	mockRepo.On("GetActiveParticipant", 1, 10).
		Return(database.Participant{Id: 1, RoomId: 1, UserId: 10, Role: string(types.RoleHost)}, nil).Once()
	mockRepo.On("LeaveRoom", 1, mock.Anything).Return(nil).Once()
	// earliest joined remaining participant becomes host
	mockRepo.On("ListActiveParticipants", 1).Return([]database.Participant{
		{Id: 2, RoomId: 1, UserId: 20, Role: string(types.RoleParticipant)},
		{Id: 3, RoomId: 1, UserId: 30, Role: string(types.RoleParticipant)},
	}, nil).Once()
	mockRepo.On("UpdateRoomHost", 1, 20).Return(nil).Once()
	mockRepo.On("UpdateParticipantRole", 1, 20, string(types.RoleHost)).Return(nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPost, "/api/rooms/1/leave", nil, 10)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.leaveRoom(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	mockRepo.AssertExpectations(t)
}

func TestLeaveRoomLastParticipantEndsRoom(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
	mockRepo.On("GetActiveParticipant", 1, 10).
		Return(database.Participant{Id: 1, RoomId: 1, UserId: 10, Role: string(types.RoleHost)}, nil).Once()
	mockRepo.On("LeaveRoom", 1, mock.Anything).Return(nil).Once()
	mockRepo.On("ListActiveParticipants", 1).Return([]database.Participant{}, nil).Once()
	mockRepo.On("EndRoom", 1, mock.Anything).Return(nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPost, "/api/rooms/1/leave", nil, 10)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.leaveRoom(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	mockRepo.AssertExpectations(t)
}

func TestLeaveRoomNonParticipant(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
	mockRepo.On("GetActiveParticipant", 1, 40).Return(database.Participant{}, sql.ErrNoRows).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPost, "/api/rooms/1/leave", nil, 40)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.leaveRoom(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	mockRepo.AssertNotCalled(t, "LeaveRoom", mock.Anything, mock.Anything)
}

func TestTimerActionHandler(t *testing.T) {
	dbRoom := testRoom()
	started := time.Now().UTC()
	updated := dbRoom
	updated.TimerStatus = string(timer.StatusActive)
	updated.TimerStartedAt = &started

	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(dbRoom, nil)
	mockRepo.On("UpdateRoomTimer", 1, mock.Anything).Return(updated, nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPost, "/api/rooms/1/timer", TimerActionRequest{Action: "start"}, 10)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.timerAction(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var snap timer.Snapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, timer.StatusActive, snap.Status)
	assert.Equal(t, 1500, snap.Duration)
}

func TestTimerActionHandlerNonHostMasked(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil)

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPost, "/api/rooms/1/timer", TimerActionRequest{Action: "start"}, 20)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.timerAction(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	mockRepo.AssertNotCalled(t, "UpdateRoomTimer", mock.Anything, mock.Anything)
}

func TestTimerActionHandlerInvalidTransition(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil)

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPost, "/api/rooms/1/timer", TimerActionRequest{Action: "pause"}, 10)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.timerAction(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPreviewInvite(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomByInviteCode", "abc123").Return(testRoom(), nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodGet, "/api/rooms/invite/abc123", nil, 20)
	req.SetPathValue("code", "abc123")
	rr := httptest.NewRecorder()
	app.previewInvite(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var room types.Room
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
	assert.Equal(t, "deep work", room.Name)
}

func TestCreateJoinRequest(t *testing.T) {
	tcases := []struct {
		name        string
		participant error
		pending     error
		wantStatus  int
		creates     bool
	}{
		{
			name:        "creates a pending request",
			participant: sql.ErrNoRows,
			pending:     sql.ErrNoRows,
			wantStatus:  http.StatusCreated,
			creates:     true,
		},
		{
			name:       "already a participant",
			wantStatus: http.StatusConflict,
		},
		{
			name:        "request already pending",
			participant: sql.ErrNoRows,
			wantStatus:  http.StatusConflict,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockStudyRoomRepository{}
			mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
			if tc.participant != nil {
				mockRepo.On("GetActiveParticipant", 1, 20).Return(database.Participant{}, tc.participant).Once()
			} else {
				mockRepo.On("GetActiveParticipant", 1, 20).
					Return(database.Participant{Id: 2, RoomId: 1, UserId: 20}, nil).Once()
			}
			if tc.participant != nil {
				if tc.pending != nil {
					mockRepo.On("GetPendingJoinRequest", 1, 20).Return(database.JoinRequest{}, tc.pending).Once()
				} else {
					mockRepo.On("GetPendingJoinRequest", 1, 20).
						Return(database.JoinRequest{Id: 5, RoomId: 1, UserId: 20, Status: string(types.JoinRequestPending)}, nil).Once()
				}
			}
			if tc.creates {
				mockRepo.On("CreateJoinRequest", 1, 20).
					Return(database.JoinRequest{Id: 5, RoomId: 1, UserId: 20, Status: string(types.JoinRequestPending)}, nil).Once()
			}

			app := newTestApp(t, mockRepo)
			req := authedRequest(http.MethodPost, "/api/rooms/1/requests", nil, 20)
			req.SetPathValue("id", "1")
			rr := httptest.NewRecorder()
			app.createJoinRequest(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestRespondJoinRequestAccept(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
	mockRepo.On("GetJoinRequest", 5).
		Return(database.JoinRequest{Id: 5, RoomId: 1, UserId: 20, Status: string(types.JoinRequestPending)}, nil).Once()
	mockRepo.On("CountActiveParticipants", 1).Return(1, nil).Once()
	mockRepo.On("RespondJoinRequest", 5, string(types.JoinRequestAccepted), mock.Anything).Return(nil).Once()
	mockRepo.On("CreateParticipant", 1, 20, string(types.RoleParticipant)).
		Return(database.Participant{Id: 3, RoomId: 1, UserId: 20, Role: string(types.RoleParticipant)}, nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPatch, "/api/rooms/1/requests/5", RespondJoinRequestRequest{Status: "accepted"}, 10)
	req.SetPathValue("id", "1")
	req.SetPathValue("rid", "5")
	rr := httptest.NewRecorder()
	app.respondJoinRequest(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	mockRepo.AssertExpectations(t)
}

func TestRespondJoinRequestReject(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()
	mockRepo.On("GetJoinRequest", 5).
		Return(database.JoinRequest{Id: 5, RoomId: 1, UserId: 20, Status: string(types.JoinRequestPending)}, nil).Once()
	mockRepo.On("RespondJoinRequest", 5, string(types.JoinRequestRejected), mock.Anything).Return(nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPatch, "/api/rooms/1/requests/5", RespondJoinRequestRequest{Status: "rejected"}, 10)
	req.SetPathValue("id", "1")
	req.SetPathValue("rid", "5")
	rr := httptest.NewRecorder()
	app.respondJoinRequest(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	mockRepo.AssertNotCalled(t, "CreateParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestRespondJoinRequestNonHostMasked(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodPatch, "/api/rooms/1/requests/5", RespondJoinRequestRequest{Status: "accepted"}, 20)
	req.SetPathValue("id", "1")
	req.SetPathValue("rid", "5")
	rr := httptest.NewRecorder()
	app.respondJoinRequest(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	mockRepo.AssertNotCalled(t, "RespondJoinRequest", mock.Anything, mock.Anything, mock.Anything)
}

func TestListJoinRequestsHostOnly(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("GetRoomById", 1).Return(testRoom(), nil).Twice()
	mockRepo.On("ListPendingJoinRequests", 1).Return([]database.JoinRequest{
		{Id: 5, RoomId: 1, UserId: 20, Status: string(types.JoinRequestPending), UserName: "guest"},
	}, nil).Once()

	app := newTestApp(t, mockRepo)

	req := authedRequest(http.MethodGet, "/api/rooms/1/requests", nil, 10)
	req.SetPathValue("id", "1")
	rr := httptest.NewRecorder()
	app.listJoinRequests(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var requests []types.JoinRequest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "guest", requests[0].User.Name)

	req = authedRequest(http.MethodGet, "/api/rooms/1/requests", nil, 20)
	req.SetPathValue("id", "1")
	rr = httptest.NewRecorder()
	app.listJoinRequests(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
