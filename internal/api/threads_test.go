package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/teabuddy/server/internal/domain"
)

func newThreadTestRouter(repo *fakeRepo, svc ChatService) *chi.Mux {
	r := chi.NewRouter()
	NewThreadHandler(repo, svc).RegisterRoutes(r)
	return r
}

func appendMessage(t *testing.T, repo *fakeRepo, threadID, role, content string) {
	t.Helper()
	err := repo.AppendMessage(context.Background(), &domain.Message{
		ThreadID:  &threadID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to seed message: %v", err)
	}
}

func TestGetThreadListsMessages(t *testing.T) {
	repo := newFakeRepo()
	appendMessage(t, repo, "thread-abc", domain.RoleUser, "How hot?")
	appendMessage(t, repo, "thread-abc", domain.RoleAssistant, "75 degrees.")
	appendMessage(t, repo, "thread-other", domain.RoleUser, "unrelated")
	r := newThreadTestRouter(repo, &fakeChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/threads/thread-abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp threadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[0].Role != domain.RoleUser || resp.Messages[1].Role != domain.RoleAssistant {
		t.Errorf("Unexpected roles: %+v", resp.Messages)
	}
	if resp.ThreadID == nil || *resp.ThreadID != "thread-abc" {
		t.Errorf("Expected threadId echoed, got %v", resp.ThreadID)
	}
}

func TestGetThreadSentinelWithoutSession(t *testing.T) {
	r := newThreadTestRouter(newFakeRepo(), &fakeChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/threads/default", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp threadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Messages) != 0 {
		t.Errorf("Expected an empty log, got %d messages", len(resp.Messages))
	}
	if resp.ThreadID != nil {
		t.Errorf("No thread should be resolved, got %v", *resp.ThreadID)
	}
}

func TestGetThreadSentinelBindsSessionThread(t *testing.T) {
	repo := newFakeRepo()
	seedSession(t, repo, &domain.TeaSession{TeaType: "Green Tea", TeaStyle: "Sencha"})
	appendMessage(t, repo, "thread-lazy", domain.RoleUser, "hello")
	svc := &fakeChatService{ensureThreadID: "thread-lazy"}
	r := newThreadTestRouter(repo, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/threads/default?teaSessionId=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.ensured) != 1 || svc.ensured[0] != 1 {
		t.Errorf("Expected thread ensured for session 1, got %v", svc.ensured)
	}

	var resp threadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ThreadID == nil || *resp.ThreadID != "thread-lazy" {
		t.Errorf("Expected resolved threadId, got %v", resp.ThreadID)
	}
	if len(resp.Messages) != 1 {
		t.Errorf("Expected 1 message, got %d", len(resp.Messages))
	}
}

func TestGetThreadSentinelInvalidSessionID(t *testing.T) {
	r := newThreadTestRouter(newFakeRepo(), &fakeChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/threads/default?teaSessionId=abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric teaSessionId, got %d", rec.Code)
	}
}

func TestGetThreadSentinelMissingSession(t *testing.T) {
	r := newThreadTestRouter(newFakeRepo(), &fakeChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/threads/default?teaSessionId=7", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing session, got %d", rec.Code)
	}
}
