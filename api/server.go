package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/chessarena/chessarena/game/session"
	"github.com/chessarena/chessarena/transport/websocket"
	"github.com/chessarena/chessarena/validate"
)

// Server represents the REST API server
type Server struct {
	registry *session.Registry
	hub      *websocket.Hub
	router   *mux.Router
}

// NewServer creates a new API server
func NewServer(registry *session.Registry, hub *websocket.Hub) *Server {
	s := &Server{
		registry: registry,
		hub:      hub,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	// Board state in FEN for tooling that only wants the position
	api.HandleFunc("/sessions/{id}/board", s.handleGetBoard).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)

	// Static files (the browser client)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Session Handlers

// handleCreateSession starts a fresh session outside of matchmaking, for
// clients that want a private game to share by id.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	created := s.registry.Create()
	respondJSON(w, http.StatusCreated, created.Info())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()

	infos := make([]session.Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(infos),
		"sessions": infos,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	info := sess.Info()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fen":    info.FEN,
		"turn":   info.Turn,
		"status": info.Status,
	})
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID := mux.Vars(r)["id"]

	if err := validate.SessionID(sessionID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	sess, err := s.registry.Get(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return sess, true
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": s.registry.Count(),
		"clients":  s.hub.ClientCount(),
	})
}
