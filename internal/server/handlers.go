package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/verte-zerg/typerpg/internal/auth"
	"github.com/verte-zerg/typerpg/internal/daily"
	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/progression"
	"github.com/verte-zerg/typerpg/internal/service"
)

const maxBodyBytes = 1 << 16

type meResponse struct {
	Success       bool   `json:"success"`
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Level         int    `json:"level"`
	XP            int    `json:"xp"`
	XPToNextLevel int    `json:"xpToNextLevel"`
}

type sessionResponse struct {
	Success  bool                 `json:"success"`
	Session  model.GameSession    `json:"session"`
	Progress model.PlayerProgress `json:"progress"`
}

type sessionsResponse struct {
	Success  bool                `json:"success"`
	Sessions []model.GameSession `json:"sessions"`
}

type conflictBody struct {
	Success               bool   `json:"success"`
	Error                 string `json:"error"`
	Reason                string `json:"reason"`
	TimeUntilResetSeconds int64  `json:"timeUntilResetSeconds"`
}

type leaderboardResponse[T any] struct {
	Success bool `json:"success"`
	Items   []T  `json:"items"`
}

func toMe(p model.PlayerProgress) meResponse {
	return meResponse{
		Success:       true,
		UserID:        p.UserID,
		Username:      p.Username,
		Level:         p.Level,
		XP:            p.XP,
		XPToNextLevel: progression.XPToNextLevel(p.Level),
	}
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p, err := s.svc.GetProgress(r.Context(), id.UserID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMe(p))
}

func (s *Server) handlePostMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p, err := s.svc.EnsurePlayer(r.Context(), id.UserID, id.Username)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMe(p))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return
	}
	problems, err := s.schema.validate(body)
	if errors.Is(err, errInvalidJSON) {
		writeError(w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if len(problems) > 0 {
		writeError(w, http.StatusBadRequest, "validation failed", problems)
		return
	}
	var sub model.SessionSubmission
	if err := json.Unmarshal(body, &sub); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", []string{err.Error()})
		return
	}

	res, err := s.svc.CreateSession(r.Context(), id.UserID, id.Username, sub)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Success: true, Session: res.Session, Progress: res.Progress})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	sessions, err := s.svc.ListSessions(r.Context(), id.UserID, queryInt(r, "limit"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.GameSession{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Success: true, Sessions: sessions})
}

func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	status, err := s.svc.GetDailyStatus(r.Context(), id.UserID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLevelLeaderboard(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.LevelLeaderboard(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.LevelEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse[model.LevelEntry]{Success: true, Items: items})
}

func (s *Server) handleTodayWPMLeaderboard(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.TodayWPMLeaderboard(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.WPMEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse[model.WPMEntry]{Success: true, Items: items})
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var done *daily.AlreadyCompletedError
	switch {
	case errors.As(err, &done):
		w.Header().Set("Retry-After", strconv.FormatInt(done.TimeUntilResetSeconds, 10))
		writeJSON(w, http.StatusConflict, conflictBody{
			Error:                 "Daily challenge already completed today",
			Reason:                "daily_already_completed",
			TimeUntilResetSeconds: done.TimeUntilResetSeconds,
		})
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed", []string{err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "player not found", nil)
	default:
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

// queryInt returns the integer query parameter name, or 0 when it is absent
// or malformed so the service default applies.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
