package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/relay"
	"github.com/studyroomhq/studyroom/internal/timer"
	"github.com/studyroomhq/studyroom/internal/types"
)

const (
	defaultTimerDuration   = 25 * 60
	defaultMaxParticipants = 10
)

type CreateRoomRequest struct {
	Name            string `json:"name"`
	Duration        int    `json:"duration"`
	MaxParticipants int    `json:"max_participants"`
	IsPublic        bool   `json:"is_public"`
}

type JoinRoomRequest struct {
	InviteCode string `json:"invite_code"`
}

type TimerActionRequest struct {
	Action string `json:"action"`
}

type RespondJoinRequestRequest struct {
	Status string `json:"status"`
}

func pathId(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.PathValue(name))
}

func participantResponse(p database.Participant) types.Participant {
	return types.Participant{
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
	}
}

func roomResponse(dbRoom database.Room, userId int, now time.Time) types.Room {
	return types.Room{
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
}

func joinRequestResponse(jr database.JoinRequest) types.JoinRequest {
	return types.JoinRequest{
		Id:     jr.Id,
		RoomId: jr.RoomId,
		User: types.User{
			Id:           jr.UserId,
			Name:         jr.UserName,
			EmailAddress: jr.UserEmail,
		},
		Status:      types.JoinRequestStatus(jr.Status),
		CreatedAt:   jr.CreatedAt,
		RespondedAt: jr.RespondedAt,
	}
}

// loadRoomForHost resolves the room and verifies the caller is its host. A
// missing room and a non-host caller produce the same not-found error, so
// callers cannot probe for rooms they have no authority over.
func (s *StudyRoomApp) loadRoomForHost(roomId, userId int) (database.Room, *ApiError) {
	dbRoom, err := s.db.GetRoomById(roomId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, NewNotFoundError()
		}
		return database.Room{}, NewInternalServerError(err)
	}

	if dbRoom.HostId != userId {
		return database.Room{}, NewNotFoundError()
	}

	return dbRoom, nil
}

func (s *StudyRoomApp) createRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewBadRequestError("name is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if req.Duration <= 0 {
		req.Duration = defaultTimerDuration
	}
	if req.MaxParticipants <= 0 {
		req.MaxParticipants = defaultMaxParticipants
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Println("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newRoom, err := s.db.CreateRoom(database.CreateRoomParams{
		HostId:          userId,
		Name:            req.Name,
		InviteCode:      sid,
		TimerDuration:   req.Duration,
		MaxParticipants: req.MaxParticipants,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		s.log.Println("create room:", err)
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	host, err := s.db.CreateParticipant(newRoom.Id, userId, string(types.RoleHost))
	if err != nil {
		s.log.Println("create host participant:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room := roomResponse(newRoom, userId, time.Now().UTC())
	room.IsParticipant = true
	room.Participants = []types.Participant{participantResponse(host)}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *StudyRoomApp) listRooms(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRooms, err := s.db.ListRoomsForUser(userId)
	if err != nil {
		s.log.Println("list rooms:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	now := time.Now().UTC()
	var rooms []types.Room
	for _, dbRoom := range dbRooms {
		room := roomResponse(dbRoom.Room, userId, now)
		room.IsParticipant = true
		rooms = append(rooms, room)
	}

	s.writeJson(w, http.StatusOK, rooms)
}

func (s *StudyRoomApp) getRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, err := s.db.GetRoomById(roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	isParticipant := true
	if _, err := s.db.GetActiveParticipant(roomId, userId); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		isParticipant = false
	}

	// private rooms are indistinguishable from missing ones to outsiders
	if !dbRoom.IsPublic && !isParticipant {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participants, err := s.db.ListActiveParticipants(roomId)
	if err != nil {
		s.log.Println("list participants:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room := roomResponse(dbRoom, userId, time.Now().UTC())
	room.IsParticipant = isParticipant
	for _, p := range participants {
		room.Participants = append(room.Participants, participantResponse(p))
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *StudyRoomApp) endRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, errResp := s.loadRoomForHost(roomId, userId); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.EndRoom(roomId, time.Now().UTC()); err != nil {
		s.log.Println("end room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.rs.NotifyRoomEnded(roomId)
	if err := s.rs.UnloadRoom(r.Context(), roomId, true); err != nil {
		s.log.Println("unload room:", err)
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *StudyRoomApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req JoinRoomRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError("")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbRoom, err := s.db.GetRoomById(roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the invite code is the only credential that opens a private room
	if !dbRoom.IsPublic && req.InviteCode != dbRoom.InviteCode {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetActiveParticipant(roomId, userId); err == nil {
		errResp := NewConflictError("already a participant")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.db.CountActiveParticipants(roomId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if count >= dbRoom.MaxParticipants {
		errResp := NewBadRequestError("room is full")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participant, err := s.db.CreateParticipant(roomId, userId, string(types.RoleParticipant))
	if err != nil {
		s.log.Println("create participant:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	p := participantResponse(participant)
	s.rs.NotifyParticipantJoined(roomId, p)

	s.writeJson(w, http.StatusCreated, p)
}

func (s *StudyRoomApp) leaveRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, err := s.db.GetRoomById(roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participant, err := s.db.GetActiveParticipant(roomId, userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.LeaveRoom(participant.Id, time.Now().UTC()); err != nil {
		s.log.Println("leave room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.rs.NotifyParticipantLeft(roomId, userId)

	if dbRoom.HostId == userId {
		if err := s.succeedHost(r, roomId); err != nil {
			s.log.Println("succeed host:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

// succeedHost runs after the host leaves: authority passes to the earliest
// joined remaining participant, and a room left with nobody in it ends.
func (s *StudyRoomApp) succeedHost(r *http.Request, roomId int) error {
	remaining, err := s.db.ListActiveParticipants(roomId)
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		if err := s.db.EndRoom(roomId, time.Now().UTC()); err != nil {
			return err
		}
		s.rs.NotifyRoomEnded(roomId)
		if err := s.rs.UnloadRoom(r.Context(), roomId, true); err != nil {
			s.log.Println("unload room:", err)
		}
		return nil
	}

	newHost := remaining[0]
	if err := s.db.UpdateRoomHost(roomId, newHost.UserId); err != nil {
		return err
	}
	if err := s.db.UpdateParticipantRole(roomId, newHost.UserId, string(types.RoleHost)); err != nil {
		return err
	}

	s.rs.NotifyHostTransferred(roomId, newHost.UserId)
	return nil
}

func (s *StudyRoomApp) timerAction(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req TimerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	updated, err := s.rs.TimerAction(r.Context(), roomId, userId, req.Action)
	if err != nil {
		errResp := timerActionError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, timer.Take(updated.TimerState(), time.Now().UTC()))
}

// timerActionError maps relay errors to the API taxonomy. Non-hosts get the
// same not-found as a missing room.
func timerActionError(err error) *ApiError {
	var invalid *timer.ErrInvalidTransition
	switch {
	case errors.Is(err, relay.ErrRoomGone), errors.Is(err, relay.ErrNotHost):
		return NewNotFoundError()
	case errors.Is(err, relay.ErrInvalidAction):
		return NewBadRequestError("invalid timer action")
	case errors.As(err, &invalid):
		return NewConflictError(err.Error())
	case errors.Is(err, relay.ErrRoomBusy):
		return NewServiceUnavailableError()
	default:
		return NewInternalServerError(err)
	}
}

func (s *StudyRoomApp) previewInvite(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	code := r.PathValue("code")
	if code == "" {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, err := s.db.GetRoomByInviteCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, roomResponse(dbRoom, userId, time.Now().UTC()))
}

func (s *StudyRoomApp) listJoinRequests(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, errResp := s.loadRoomForHost(roomId, userId); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRequests, err := s.db.ListPendingJoinRequests(roomId)
	if err != nil {
		s.log.Println("list join requests:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var requests []types.JoinRequest
	for _, jr := range dbRequests {
		requests = append(requests, joinRequestResponse(jr))
	}

	s.writeJson(w, http.StatusOK, requests)
}

func (s *StudyRoomApp) createJoinRequest(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetRoomById(roomId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetActiveParticipant(roomId, userId); err == nil {
		errResp := NewConflictError("already a participant")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetPendingJoinRequest(roomId, userId); err == nil {
		errResp := NewConflictError("join request already pending")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	jr, err := s.db.CreateJoinRequest(roomId, userId)
	if err != nil {
		s.log.Println("create join request:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, joinRequestResponse(jr))
}

func (s *StudyRoomApp) respondJoinRequest(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requestId, err := pathId(r, "rid")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req RespondJoinRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	status := types.JoinRequestStatus(req.Status)
	if status != types.JoinRequestAccepted && status != types.JoinRequestRejected {
		errResp := NewBadRequestError("status must be accepted or rejected")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRoom, errResp := s.loadRoomForHost(roomId, userId)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	jr, err := s.db.GetJoinRequest(requestId)
	if err != nil || jr.RoomId != roomId {
		var errResp *ApiError
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if jr.Status != string(types.JoinRequestPending) {
		errResp := NewConflictError("join request already handled")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if status == types.JoinRequestAccepted {
		count, err := s.db.CountActiveParticipants(roomId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		if count >= dbRoom.MaxParticipants {
			errResp := NewBadRequestError("room is full")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	if err := s.db.RespondJoinRequest(requestId, string(status), time.Now().UTC()); err != nil {
		s.log.Println("respond join request:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if status == types.JoinRequestAccepted {
		participant, err := s.db.CreateParticipant(roomId, jr.UserId, string(types.RoleParticipant))
		if err != nil {
			s.log.Println("create participant:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		s.rs.NotifyParticipantJoined(roomId, participantResponse(participant))
	}

	s.writeJson(w, http.StatusNoContent, nil)
}
