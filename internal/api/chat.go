package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teabuddy/server/internal/chat"
	"github.com/teabuddy/server/internal/domain"
	"github.com/teabuddy/server/internal/shared"
)

// ChatService is the slice of the chat service the HTTP layer depends on.
type ChatService interface {
	HandleTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResult, error)
	EnsureSessionThread(ctx context.Context, session *domain.TeaSession) (string, error)
}

// ChatHandler handles the chat turn endpoint.
type ChatHandler struct {
	svc ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// RegisterRoutes registers the chat route.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.PostChat)
}

type chatRequest struct {
	Message      string `json:"message"`
	ThreadID     string `json:"threadId"`
	TeaSessionID *int64 `json:"teaSessionId"`
}

type chatResponse struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

// PostChat relays one chat turn to the assistant.
func (h *ChatHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.HandleTurn(r.Context(), chat.TurnRequest{
		Message:      req.Message,
		ThreadID:     req.ThreadID,
		TeaSessionID: req.TeaSessionID,
	})
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			Error(w, http.StatusBadRequest, "message is required")
			return
		}
		if shared.IsSQLiteConflictError(err) {
			slog.Warn("chat turn hit a busy database", "error", err, "thread_id", req.ThreadID)
			Error(w, http.StatusServiceUnavailable, "database is busy, retry shortly")
			return
		}
		// Remote-service detail stays in the log; callers get a generic 500.
		var runErr *chat.RunFailedError
		switch {
		case errors.As(err, &runErr):
			slog.Error("assistant run failed", "status", runErr.Status, "thread_id", req.ThreadID)
		default:
			slog.Error("chat turn failed", "error", err, "thread_id", req.ThreadID)
		}
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	JSON(w, http.StatusOK, chatResponse{
		Message:  result.Reply,
		ThreadID: result.ThreadID,
	})
}
