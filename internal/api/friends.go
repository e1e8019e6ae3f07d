package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/types"
)

type CreateFriendRequestRequest struct {
	Email string `json:"email"`
}

type RespondFriendRequestRequest struct {
	Status string `json:"status"`
}

func friendResponse(f database.FriendshipWithUser) types.Friend {
	return types.Friend{
		Id: f.Id,
		User: types.User{
			Id:           f.OtherUserId,
			Name:         f.OtherName,
			EmailAddress: f.OtherEmail,
		},
		AcceptedAt: f.AcceptedAt,
	}
}

func friendRequestResponse(f database.FriendshipWithUser) types.FriendRequest {
	return types.FriendRequest{
		Id: f.Id,
		User: types.User{
			Id:           f.OtherUserId,
			Name:         f.OtherName,
			EmailAddress: f.OtherEmail,
		},
		Status:    types.FriendshipStatus(f.Status),
		CreatedAt: f.CreatedAt,
	}
}

func (s *StudyRoomApp) listFriends(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbFriends, err := s.db.ListFriends(userId)
	if err != nil {
		s.log.Println("list friends:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var friends []types.Friend
	for _, f := range dbFriends {
		friends = append(friends, friendResponse(f))
	}

	s.writeJson(w, http.StatusOK, friends)
}

func (s *StudyRoomApp) removeFriend(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	friendId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.RemoveFriend(userId, friendId); err != nil {
		s.log.Println("remove friend:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *StudyRoomApp) listFriendRequests(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbRequests, err := s.db.ListPendingFriendRequests(userId)
	if err != nil {
		s.log.Println("list friend requests:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var requests []types.FriendRequest
	for _, f := range dbRequests {
		requests = append(requests, friendRequestResponse(f))
	}

	s.writeJson(w, http.StatusOK, requests)
}

func (s *StudyRoomApp) createFriendRequest(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Email == "" {
		errResp := NewBadRequestError("email is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	target, err := s.db.GetUserByEmail(req.Email)
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

	if target.Id == userId {
		errResp := NewBadRequestError("cannot send a friend request to yourself")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// one row per pair of users, whichever side sent it
	if existing, err := s.db.GetFriendship(userId, target.Id); err == nil {
		var errResp *ApiError
		if existing.Status == string(types.FriendshipAccepted) {
			errResp = NewConflictError("already friends")
		} else {
			errResp = NewConflictError("friend request already pending")
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	f, err := s.db.CreateFriendRequest(userId, target.Id)
	if err != nil {
		s.log.Println("create friend request:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.FriendRequest{
		Id: f.Id,
		User: types.User{
			Id:           target.Id,
			Name:         target.Name,
			EmailAddress: target.EmailAddress,
		},
		Status:    types.FriendshipStatus(f.Status),
		CreatedAt: f.CreatedAt,
	})
}

func (s *StudyRoomApp) respondFriendRequest(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requestId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req RespondFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Status != string(types.FriendshipAccepted) && req.Status != "rejected" {
		errResp := NewBadRequestError("status must be accepted or rejected")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	f, err := s.db.GetFriendRequest(requestId)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// only the recipient of a still-pending request can see it; anyone else
	// gets the same not-found as a missing request
	if err != nil || f.FriendId != userId || f.Status != string(types.FriendshipPending) {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Status == string(types.FriendshipAccepted) {
		err = s.db.AcceptFriendRequest(requestId, time.Now().UTC())
	} else {
		// a rejected request leaves no trace, the sender may try again later
		err = s.db.DeleteFriendRequest(requestId)
	}
	if err != nil {
		s.log.Println("respond friend request:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}
