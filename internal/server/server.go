package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"matchplay/internal/game"
	"matchplay/internal/session"
)

// Server is the HTTP server.
type Server struct {
	mux      *http.ServeMux
	registry *game.Registry
	manager  *session.Manager
	hub      *Hub
}

// New creates a server with all routes.
func New(registry *game.Registry, manager *session.Manager, hub *Hub) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		registry: registry,
		manager:  manager,
		hub:      hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/rules", s.handleListRules)
	s.mux.HandleFunc("POST /api/conversations/{id}/games", s.handleStartGame)
	s.mux.HandleFunc("GET /api/conversations/{id}/games", s.handleHistory)
	s.mux.HandleFunc("GET /api/conversations/{id}/games/active", s.handleActiveGame)
	s.mux.HandleFunc("GET /api/conversations/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/choice", s.handleSubmitChoice)
	s.mux.HandleFunc("POST /api/games/{id}/forfeit", s.handleForfeit)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// userID extracts the authenticated caller. Authentication itself lives
// upstream (gateway); at this boundary the identity header is trusted.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

type startGameRequest struct {
	ParticipantID       string `json:"participantId"`
	RuleSet             string `json:"ruleSet"`
	BestOf              int    `json:"bestOf"`
	RoundTimeoutSeconds int    `json:"roundTimeoutSeconds"`
	MatchTimeoutSeconds int    `json:"matchTimeoutSeconds"`
	TimeoutPolicy       string `json:"timeoutPolicy"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	initiator := userID(r)
	if initiator == "" {
		writeErrorMsg(w, http.StatusBadRequest, "X-User-ID header required")
		return
	}
	var req startGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.manager.Start(r.PathValue("id"), initiator, strings.TrimSpace(req.ParticipantID), session.StartOptions{
		RuleSet:       req.RuleSet,
		BestOf:        req.BestOf,
		RoundTimeout:  secondsToDuration(req.RoundTimeoutSeconds),
		MatchTimeout:  secondsToDuration(req.MatchTimeoutSeconds),
		TimeoutPolicy: session.TimeoutPolicy(req.TimeoutPolicy),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleActiveGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.manager.ActiveSession(r.PathValue("id"))
	if !ok {
		writeError(w, session.ErrSessionNotFound)
		return
	}
	view, err := s.manager.GetState(id, userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErrorMsg(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	views, err := s.manager.History(r.PathValue("id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	view, err := s.manager.GetState(r.PathValue("id"), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitChoiceRequest struct {
	Choice game.Choice `json:"choice"`
}

func (s *Server) handleSubmitChoice(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var req submitChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if err := s.manager.SubmitChoice(id, uid, req.Choice); err != nil {
		writeError(w, err)
		return
	}
	view, err := s.manager.GetState(id, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleForfeit(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id := r.PathValue("id")
	if err := s.manager.Forfeit(id, uid); err != nil {
		writeError(w, err)
		return
	}
	view, err := s.manager.GetState(id, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func secondsToDuration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps engine errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var serr *session.Error
	if !errors.As(err, &serr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	status := http.StatusBadRequest
	switch serr.Code {
	case session.ErrSessionNotFound.Code:
		status = http.StatusNotFound
	case session.ErrNotAParticipant.Code:
		status = http.StatusForbidden
	case session.ErrAlreadyInProgress.Code,
		session.ErrSessionNotInProgress.Code,
		session.ErrChoiceAlreadySubmitted.Code:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: serr.Message, Code: serr.Code})
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
