package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/teabuddy/server/internal/assistant"
	"github.com/teabuddy/server/internal/domain"
	"github.com/teabuddy/server/internal/shared"
	"github.com/teabuddy/server/internal/store"
)

// SessionHandler handles tea session and steep endpoints.
type SessionHandler struct {
	repo store.Repository
	gw   assistant.Gateway
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(repo store.Repository, gw assistant.Gateway) *SessionHandler {
	return &SessionHandler{repo: repo, gw: gw}
}

// RegisterRoutes registers session and steep routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Put("/", h.UpdateSession)
			r.Delete("/", h.DeleteSession)
			r.Route("/steeps", func(r chi.Router) {
				r.Get("/", h.ListSteeps)
				r.Post("/", h.CreateSteep)
				r.Get("/{steepId}", h.GetSteep)
				r.Put("/{steepId}", h.UpdateSteep)
				r.Delete("/{steepId}", h.DeleteSteep)
			})
		})
	})
}

// ListSessions returns all tea sessions, newest first.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.repo.ListSessions(r.Context())
	if err != nil {
		slog.Error("failed to list tea sessions", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	JSON(w, http.StatusOK, out)
}

type createSessionRequest struct {
	ThreadID    *string  `json:"threadId"`
	TeaType     string   `json:"teaType"`
	TeaStyle    string   `json:"teaStyle"`
	BrewingTemp *float64 `json:"brewingTemp"`
	SteepTime   *float64 `json:"steepTime"`
	Notes       *string  `json:"notes"`
}

// CreateSession creates a new tea session.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TeaType) == "" || strings.TrimSpace(req.TeaStyle) == "" {
		Error(w, http.StatusBadRequest, "teaType and teaStyle are required")
		return
	}

	brewingTemp, ok := coerceInt(req.BrewingTemp)
	if !ok {
		Error(w, http.StatusBadRequest, "brewingTemp must be a finite number")
		return
	}
	steepTime, ok := coerceInt(req.SteepTime)
	if !ok {
		Error(w, http.StatusBadRequest, "steepTime must be a finite number")
		return
	}

	session := &domain.TeaSession{
		ThreadID:    req.ThreadID,
		TeaType:     req.TeaType,
		TeaStyle:    req.TeaStyle,
		BrewingTemp: brewingTemp,
		SteepTime:   steepTime,
		Notes:       req.Notes,
	}
	if err := h.repo.CreateSession(r.Context(), session); err != nil {
		if shared.IsUniqueConstraintError(err) {
			Error(w, http.StatusConflict, "thread is already bound to another session")
			return
		}
		slog.Error("failed to create tea session", "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(session))
}

// GetSession returns one tea session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	session, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("failed to get tea session", "error", err, "session_id", id)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(session))
}

type updateSessionRequest struct {
	TeaType     *string  `json:"teaType"`
	TeaStyle    *string  `json:"teaStyle"`
	BrewingTemp *float64 `json:"brewingTemp"`
	SteepTime   *float64 `json:"steepTime"`
	Notes       *string  `json:"notes"`
}

// UpdateSession updates a tea session. Absent fields keep their values;
// numeric fields are coerced to integers.
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("failed to get tea session", "error", err, "session_id", id)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	if req.TeaType != nil {
		session.TeaType = *req.TeaType
	}
	if req.TeaStyle != nil {
		session.TeaStyle = *req.TeaStyle
	}
	if req.BrewingTemp != nil {
		v, ok := coerceInt(req.BrewingTemp)
		if !ok {
			Error(w, http.StatusBadRequest, "brewingTemp must be a finite number")
			return
		}
		session.BrewingTemp = v
	}
	if req.SteepTime != nil {
		v, ok := coerceInt(req.SteepTime)
		if !ok {
			Error(w, http.StatusBadRequest, "steepTime must be a finite number")
			return
		}
		session.SteepTime = v
	}
	if req.Notes != nil {
		session.Notes = req.Notes
	}

	if err := h.repo.UpdateSession(r.Context(), session); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("failed to update tea session", "error", err, "session_id", id)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	JSON(w, http.StatusOK, toSessionResponse(session))
}

// DeleteSession deletes a session, its steeps and its thread's messages, then
// releases the remote thread best-effort. A remote delete failure does not
// roll back the local deletes.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	session, err := h.repo.GetSession(r.Context(), id)
	if err != nil {
		slog.Error("failed to get tea session", "error", err, "session_id", id)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	if err := h.repo.DeleteSessionCascade(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("failed to delete tea session", "error", err, "session_id", id)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if session.HasBoundThread() {
		if err := h.gw.DeleteThread(r.Context(), *session.ThreadID); err != nil {
			slog.Warn("failed to delete remote thread", "error", err, "thread_id", *session.ThreadID)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// coerceInt converts an optional JSON number to an integer, rejecting
// non-finite values. A nil input is valid and stays nil.
func coerceInt(v *float64) (*int, bool) {
	if v == nil {
		return nil, true
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil, false
	}
	n := int(*v)
	return &n, true
}
