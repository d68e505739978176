// Package api provides HTTP handlers for the tea study buddy API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/teabuddy/server/internal/domain"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// parseID parses a numeric path segment.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sessionResponse is the wire shape of a tea session. Ids are rendered as
// strings and field names are camelCase.
type sessionResponse struct {
	ID          string  `json:"id"`
	ThreadID    *string `json:"threadId"`
	TeaType     string  `json:"teaType"`
	TeaStyle    string  `json:"teaStyle"`
	BrewingTemp *int    `json:"brewingTemp"`
	SteepTime   *int    `json:"steepTime"`
	Notes       *string `json:"notes"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt,omitempty"`
}

func toSessionResponse(s *domain.TeaSession) sessionResponse {
	return sessionResponse{
		ID:          strconv.FormatInt(s.ID, 10),
		ThreadID:    s.ThreadID,
		TeaType:     s.TeaType,
		TeaStyle:    s.TeaStyle,
		BrewingTemp: s.BrewingTemp,
		SteepTime:   s.SteepTime,
		Notes:       s.Notes,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   formatTimePtr(s.UpdatedAt),
	}
}

type steepResponse struct {
	ID              string  `json:"id"`
	TeaSessionID    string  `json:"teaSessionId"`
	SteepNumber     int     `json:"steepNumber"`
	Temperature     *int    `json:"temperature"`
	SteepTimeMin    *int    `json:"steepTimeMin"`
	SteepTimeMax    *int    `json:"steepTimeMax"`
	ActualSteepTime *int    `json:"actualSteepTime"`
	Notes           *string `json:"notes"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       *string `json:"updatedAt,omitempty"`
}

func toSteepResponse(s *domain.TeaSteep) steepResponse {
	return steepResponse{
		ID:              strconv.FormatInt(s.ID, 10),
		TeaSessionID:    strconv.FormatInt(s.TeaSessionID, 10),
		SteepNumber:     s.SteepNumber,
		Temperature:     s.Temperature,
		SteepTimeMin:    s.SteepTimeMin,
		SteepTimeMax:    s.SteepTimeMax,
		ActualSteepTime: s.ActualSteepTime,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       formatTimePtr(s.UpdatedAt),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
