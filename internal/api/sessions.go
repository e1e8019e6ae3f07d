package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/types"
)

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type CreateFocusSessionRequest struct {
	CategoryId  *int      `json:"category_id"`
	Duration    int       `json:"duration"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

func categoryResponse(c database.Category) types.Category {
	return types.Category{
		Id:        c.Id,
		Name:      c.Name,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
	}
}

func focusSessionResponse(fs database.FocusSession) types.FocusSession {
	return types.FocusSession{
		Id:          fs.Id,
		CategoryId:  fs.CategoryId,
		Duration:    fs.Duration,
		StartedAt:   fs.StartedAt,
		CompletedAt: fs.CompletedAt,
	}
}

func (s *StudyRoomApp) listCategories(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbCategories, err := s.db.ListCategories(userId)
	if err != nil {
		s.log.Println("list categories:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var categories []types.Category
	for _, c := range dbCategories {
		categories = append(categories, categoryResponse(c))
	}

	s.writeJson(w, http.StatusOK, categories)
}

func (s *StudyRoomApp) createCategory(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateCategoryRequest
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

	category, err := s.db.CreateCategory(database.CreateCategoryParams{
		UserId: userId,
		Name:   req.Name,
		Color:  req.Color,
	})
	if err != nil {
		s.log.Println("create category:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, categoryResponse(category))
}

func (s *StudyRoomApp) deleteCategory(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	categoryId, err := pathId(r, "id")
	if err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteCategory(userId, categoryId); err != nil {
		s.log.Println("delete category:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *StudyRoomApp) listFocusSessions(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError("")
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbSessions, err := s.db.ListFocusSessions(userId, limit)
	if err != nil {
		s.log.Println("list focus sessions:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var sessions []types.FocusSession
	for _, fs := range dbSessions {
		sessions = append(sessions, focusSessionResponse(fs))
	}

	s.writeJson(w, http.StatusOK, sessions)
}

func (s *StudyRoomApp) createFocusSession(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateFocusSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Duration <= 0 {
		errResp := NewBadRequestError("duration must be positive")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if req.CompletedAt.IsZero() {
		req.CompletedAt = time.Now().UTC()
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = req.CompletedAt.Add(-time.Duration(req.Duration) * time.Second)
	}

	session, err := s.db.CreateFocusSession(database.CreateFocusSessionParams{
		UserId:      userId,
		CategoryId:  req.CategoryId,
		Duration:    req.Duration,
		StartedAt:   req.StartedAt,
		CompletedAt: req.CompletedAt,
	})
	if err != nil {
		s.log.Println("create focus session:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, focusSessionResponse(session))
}
