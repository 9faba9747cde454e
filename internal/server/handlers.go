package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vetsupport/companion/internal/checkin"
	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/pkg/types"
)

// userPayload identifies the acting user in request bodies. Profile fields
// are optional; present ones update the stored profile.
type userPayload struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Language  string `json:"language,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	IsVeteran *bool  `json:"is_veteran,omitempty"`
}

// resolveUser loads the user record, creating or updating it from the
// payload's profile fields.
func (s *Server) resolveUser(r *http.Request, p userPayload) (*types.User, error) {
	if p.UserID == 0 {
		return nil, errors.New("user_id is required")
	}

	user, err := s.store.GetUser(r.Context(), p.UserID)
	if errors.Is(err, data.ErrNotFound) {
		user = &types.User{ID: p.UserID, Language: "uk"}
	} else if err != nil {
		return nil, err
	}

	if p.Username != "" {
		user.Username = p.Username
	}
	if p.Language != "" {
		user.Language = p.Language
	}
	if p.Timezone != "" {
		user.Timezone = p.Timezone
	}
	if p.IsVeteran != nil {
		user.IsVeteran = *p.IsVeteran
	}

	if err := s.store.UpsertUser(r.Context(), user); err != nil {
		return nil, err
	}

	return user, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHECK-IN FLOW
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCheckInBegin(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.resolveUser(r, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.checkins.Begin(r.Context(), user)
	if err != nil {
		s.log.Err(err, "begin check-in")
		writeError(w, http.StatusInternalServerError, "failed to begin check-in")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckInLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		userPayload
		Level int `json:"level"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.resolveUser(r, req.userPayload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.checkins.SubmitLevel(r.Context(), user, req.Level); err != nil {
		var vErr *checkin.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusUnprocessableEntity, vErr.Error())
		case errors.Is(err, checkin.ErrNoSession):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.log.Err(err, "submit level")
			writeError(w, http.StatusInternalServerError, "failed to record level")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"state": string(checkin.StateAwaitingNote),
		"emoji": types.MoodEmoji(req.Level),
	})
}

func (s *Server) handleCheckInNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		userPayload
		Note string `json:"note"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.resolveUser(r, req.userPayload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.checkins.SubmitNote(r.Context(), user, req.Note)
	if err != nil {
		if errors.Is(err, checkin.ErrNoSession) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.log.Err(err, "finalize check-in")
		writeError(w, http.StatusInternalServerError, "failed to store check-in")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckInCancel(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	s.checkins.Cancel(req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"state": string(checkin.StateIdle)})
}

// ═══════════════════════════════════════════════════════════════════════════════
// CHAT
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		userPayload
		Message string `json:"message"`
		IsVoice bool   `json:"is_voice,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "message cannot be empty")
		return
	}

	user, err := s.resolveUser(r, req.userPayload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exchange, err := s.chats.Handle(r.Context(), user, req.Message, req.IsVoice)
	if err != nil {
		s.log.Err(err, "chat turn")
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, exchange)
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATS AND RECOMMENDATIONS
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if errors.Is(err, data.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		s.log.Err(err, "load user")
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	report, err := s.stats.Report(r.Context(), user)
	if err != nil {
		s.log.Err(err, "build stats report")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	level, err := strconv.Atoi(q.Get("level"))
	if err != nil || level < types.MoodMin || level > types.MoodMax {
		writeError(w, http.StatusUnprocessableEntity, "level must be between 1 and 10")
		return
	}

	language := q.Get("language")
	if language == "" {
		language = "uk"
	}

	if category := q.Get("category"); category != "" {
		rec, err := s.recommend.Select(r.Context(), level, category, language)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	recs, err := s.recommend.ForLevel(r.Context(), level, language, 3)
	if err != nil {
		s.log.Err(err, "select recommendations")
		writeError(w, http.StatusInternalServerError, "failed to select recommendations")
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

// ═══════════════════════════════════════════════════════════════════════════════
// ADMIN AND HEALTH
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.GetAdminSummary(r.Context())
	if err != nil {
		s.log.Err(err, "admin summary")
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Health(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
