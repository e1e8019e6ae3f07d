package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/studyroomhq/studyroom/internal/config"
	"github.com/studyroomhq/studyroom/internal/database"
	"github.com/studyroomhq/studyroom/internal/relay"
	"github.com/teris-io/shortid"
)

type StudyRoomApp struct {
	log             *log.Logger
	db              database.StudyRoomRepository
	mux             *http.Server
	rs              *relay.RoomServer
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewStudyRoomApp(mux *http.ServeMux, logger *log.Logger, rs *relay.RoomServer, db database.StudyRoomRepository, cfg *config.Config) *StudyRoomApp {
	s := &StudyRoomApp{
		log:             logger,
		db:              db,
		rs:              rs,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.HandleFunc("GET /api/rooms/{id}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("DELETE /api/rooms/{id}", s.authMiddleware(s.endRoom))
	mux.HandleFunc("POST /api/rooms/{id}/join", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("POST /api/rooms/{id}/leave", s.authMiddleware(s.leaveRoom))
	mux.HandleFunc("POST /api/rooms/{id}/timer", s.authMiddleware(s.timerAction))
	mux.HandleFunc("GET /api/rooms/{id}/requests", s.authMiddleware(s.listJoinRequests))
	mux.HandleFunc("POST /api/rooms/{id}/requests", s.authMiddleware(s.createJoinRequest))
	mux.HandleFunc("PATCH /api/rooms/{id}/requests/{rid}", s.authMiddleware(s.respondJoinRequest))
	mux.HandleFunc("GET /api/rooms/invite/{code}", s.authMiddleware(s.previewInvite))
	mux.HandleFunc("GET /api/friends", s.authMiddleware(s.listFriends))
	mux.HandleFunc("DELETE /api/friends/{id}", s.authMiddleware(s.removeFriend))
	mux.HandleFunc("GET /api/friends/requests", s.authMiddleware(s.listFriendRequests))
	mux.HandleFunc("POST /api/friends/requests", s.authMiddleware(s.createFriendRequest))
	mux.HandleFunc("PATCH /api/friends/requests/{id}", s.authMiddleware(s.respondFriendRequest))
	mux.HandleFunc("GET /api/categories", s.authMiddleware(s.listCategories))
	mux.HandleFunc("POST /api/categories", s.authMiddleware(s.createCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authMiddleware(s.deleteCategory))
	mux.HandleFunc("GET /api/sessions", s.authMiddleware(s.listFocusSessions))
	mux.HandleFunc("POST /api/sessions", s.authMiddleware(s.createFocusSession))
	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("GET /healthz", s.healthz)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *StudyRoomApp) Start() error {
	s.log.Printf("starting server on %s", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *StudyRoomApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
