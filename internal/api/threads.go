package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/teabuddy/server/internal/domain"
	"github.com/teabuddy/server/internal/store"
)

// ThreadHandler serves the message log for a conversation thread.
type ThreadHandler struct {
	repo store.Repository
	svc  ChatService
}

// NewThreadHandler creates a new thread handler.
func NewThreadHandler(repo store.Repository, svc ChatService) *ThreadHandler {
	return &ThreadHandler{repo: repo, svc: svc}
}

// RegisterRoutes registers thread routes.
func (h *ThreadHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/threads/{id}", h.GetThread)
}

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type threadResponse struct {
	Messages []messageResponse `json:"messages"`
	ThreadID *string           `json:"threadId,omitempty"`
}

// GetThread lists a thread's messages in creation order. When the id is the
// "default" sentinel and a teaSessionId query parameter names a session
// without a bound thread, a remote thread is lazily created and bound first.
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "id")

	if threadID == "" || threadID == domain.ThreadSentinel {
		resolved, ok := h.resolveSessionThread(w, r)
		if !ok {
			return
		}
		if resolved == "" {
			JSON(w, http.StatusOK, threadResponse{Messages: []messageResponse{}})
			return
		}
		threadID = resolved
	}

	msgs, err := h.repo.ListThreadMessages(r.Context(), threadID)
	if err != nil {
		slog.Error("failed to list thread messages", "error", err, "thread_id", threadID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := threadResponse{
		Messages: make([]messageResponse, 0, len(msgs)),
		ThreadID: &threadID,
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, messageResponse{Role: m.Role, Content: m.Content})
	}
	JSON(w, http.StatusOK, out)
}

// resolveSessionThread maps the sentinel id to a session's bound thread,
// creating and binding one remotely if needed. The bool result is false when
// a response has already been written.
func (h *ThreadHandler) resolveSessionThread(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("teaSessionId")
	if raw == "" {
		return "", true
	}

	sessionID, ok := parseID(raw)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid teaSessionId")
		return "", false
	}

	session, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to get tea session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return "", false
	}
	if session == nil {
		Error(w, http.StatusNotFound, "session not found")
		return "", false
	}

	threadID, err := h.svc.EnsureSessionThread(r.Context(), session)
	if err != nil {
		slog.Error("failed to ensure session thread", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return "", false
	}
	return threadID, true
}
