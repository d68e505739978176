package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teabuddy/server/internal/domain"
	"github.com/teabuddy/server/internal/store"
)

type steepRequest struct {
	Temperature     *float64 `json:"temperature"`
	SteepTimeMin    *float64 `json:"steepTimeMin"`
	SteepTimeMax    *float64 `json:"steepTimeMax"`
	ActualSteepTime *float64 `json:"actualSteepTime"`
	Notes           *string  `json:"notes"`
}

// ListSteeps returns a session's steeps ordered by steep number.
func (h *SessionHandler) ListSteeps(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	steeps, err := h.repo.ListSteeps(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to list steeps", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]steepResponse, 0, len(steeps))
	for _, s := range steeps {
		out = append(out, toSteepResponse(s))
	}
	JSON(w, http.StatusOK, out)
}

// CreateSteep adds a steep to a session, assigning the next steep number.
func (h *SessionHandler) CreateSteep(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	var req steepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to get tea session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	steep := &domain.TeaSteep{TeaSessionID: sessionID}
	if !applySteepFields(steep, &req) {
		Error(w, http.StatusBadRequest, "numeric fields must be finite numbers")
		return
	}

	if err := h.repo.CreateSteep(r.Context(), steep); err != nil {
		slog.Error("failed to create steep", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	JSON(w, http.StatusOK, toSteepResponse(steep))
}

// GetSteep returns one steep scoped to a session.
func (h *SessionHandler) GetSteep(w http.ResponseWriter, r *http.Request) {
	sessionID, steepID, ok := parseSteepIDs(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID or steep ID")
		return
	}

	steep, err := h.repo.GetSteep(r.Context(), sessionID, steepID)
	if err != nil {
		slog.Error("failed to get steep", "error", err, "session_id", sessionID, "steep_id", steepID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if steep == nil {
		Error(w, http.StatusNotFound, "steep not found")
		return
	}

	JSON(w, http.StatusOK, toSteepResponse(steep))
}

// UpdateSteep updates a steep's fields. Absent fields keep their values.
func (h *SessionHandler) UpdateSteep(w http.ResponseWriter, r *http.Request) {
	sessionID, steepID, ok := parseSteepIDs(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID or steep ID")
		return
	}

	var req steepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	steep, err := h.repo.GetSteep(r.Context(), sessionID, steepID)
	if err != nil {
		slog.Error("failed to get steep", "error", err, "session_id", sessionID, "steep_id", steepID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if steep == nil {
		Error(w, http.StatusNotFound, "steep not found")
		return
	}

	if !applySteepFields(steep, &req) {
		Error(w, http.StatusBadRequest, "numeric fields must be finite numbers")
		return
	}

	if err := h.repo.UpdateSteep(r.Context(), steep); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "steep not found")
			return
		}
		slog.Error("failed to update steep", "error", err, "session_id", sessionID, "steep_id", steepID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	JSON(w, http.StatusOK, toSteepResponse(steep))
}

// DeleteSteep deletes one steep. Its number is never reassigned.
func (h *SessionHandler) DeleteSteep(w http.ResponseWriter, r *http.Request) {
	sessionID, steepID, ok := parseSteepIDs(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session ID or steep ID")
		return
	}

	if err := h.repo.DeleteSteep(r.Context(), sessionID, steepID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "steep not found")
			return
		}
		slog.Error("failed to delete steep", "error", err, "session_id", sessionID, "steep_id", steepID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseSteepIDs(r *http.Request) (sessionID, steepID int64, ok bool) {
	sessionID, ok = parseID(chi.URLParam(r, "id"))
	if !ok {
		return 0, 0, false
	}
	steepID, ok = parseID(chi.URLParam(r, "steepId"))
	if !ok {
		return 0, 0, false
	}
	return sessionID, steepID, true
}

// applySteepFields overlays provided request fields onto a steep, coercing
// numbers to integers. Returns false on a non-finite value.
func applySteepFields(steep *domain.TeaSteep, req *steepRequest) bool {
	fields := []struct {
		in  *float64
		out **int
	}{
		{req.Temperature, &steep.Temperature},
		{req.SteepTimeMin, &steep.SteepTimeMin},
		{req.SteepTimeMax, &steep.SteepTimeMax},
		{req.ActualSteepTime, &steep.ActualSteepTime},
	}
	for _, f := range fields {
		if f.in == nil {
			continue
		}
		v, ok := coerceInt(f.in)
		if !ok {
			return false
		}
		*f.out = v
	}
	if req.Notes != nil {
		steep.Notes = req.Notes
	}
	return true
}
