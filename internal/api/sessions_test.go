package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/types"
)

func TestCreateCategory(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("CreateCategory", database.CreateCategoryParams{
		UserId: 1,
		Name:   "reading",
		Color:  "#aabbcc",
	}).Return(database.Category{Id: 3, UserId: 1, Name: "reading", Color: "#aabbcc"}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	app.createCategory(rr, authedRequest(http.MethodPost, "/api/categories", CreateCategoryRequest{
		Name:  "reading",
		Color: "#aabbcc",
	}, 1))

	require.Equal(t, http.StatusCreated, rr.Code)
	var c types.Category
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&c))
	assert.Equal(t, 3, c.Id)
	mockRepo.AssertExpectations(t)
}

func TestCreateCategoryRequiresName(t *testing.T) {
	app := newTestApp(t, &database.MockStudyRoomRepository{})
	rr := httptest.NewRecorder()
	app.createCategory(rr, authedRequest(http.MethodPost, "/api/categories", CreateCategoryRequest{}, 1))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListCategories(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("ListCategories", 1).Return([]database.Category{
		{Id: 3, UserId: 1, Name: "reading"},
		{Id: 4, UserId: 1, Name: "writing"},
	}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	app.listCategories(rr, authedRequest(http.MethodGet, "/api/categories", nil, 1))

	require.Equal(t, http.StatusOK, rr.Code)
	var categories []types.Category
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&categories))
	assert.Len(t, categories, 2)
}

func TestDeleteCategory(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("DeleteCategory", 1, 3).Return(nil).Once()

	app := newTestApp(t, mockRepo)
	req := authedRequest(http.MethodDelete, "/api/categories/3", nil, 1)
	req.SetPathValue("id", "3")
	rr := httptest.NewRecorder()
	app.deleteCategory(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	mockRepo.AssertExpectations(t)
}

func TestCreateFocusSession(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("CreateFocusSession", mock.MatchedBy(func(params database.CreateFocusSessionParams) bool {
		return params.UserId == 1 && params.Duration == 1500 &&
			params.CompletedAt.Sub(params.StartedAt) == 1500*time.Second
	})).Return(database.FocusSession{Id: 9, UserId: 1, Duration: 1500}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	app.createFocusSession(rr, authedRequest(http.MethodPost, "/api/sessions", CreateFocusSessionRequest{
		Duration: 1500,
	}, 1))

	require.Equal(t, http.StatusCreated, rr.Code)
	var fs types.FocusSession
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&fs))
	assert.Equal(t, 9, fs.Id)
	mockRepo.AssertExpectations(t)
}

func TestCreateFocusSessionRejectsBadDuration(t *testing.T) {
	app := newTestApp(t, &database.MockStudyRoomRepository{})
	rr := httptest.NewRecorder()
	app.createFocusSession(rr, authedRequest(http.MethodPost, "/api/sessions", CreateFocusSessionRequest{}, 1))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListFocusSessions(t *testing.T) {
	mockRepo := &database.MockStudyRoomRepository{}
	mockRepo.On("ListFocusSessions", 1, 10).Return([]database.FocusSession{
		{Id: 9, UserId: 1, Duration: 1500},
	}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	app.listFocusSessions(rr, authedRequest(http.MethodGet, "/api/sessions?limit=10", nil, 1))

	require.Equal(t, http.StatusOK, rr.Code)
	var sessions []types.FocusSession
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&sessions))
	assert.Len(t, sessions, 1)
}
