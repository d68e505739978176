// Package chat implements the thread reconciler: it binds local tea sessions
// to remote conversation threads and relays each chat turn, persisting both
// sides of the exchange.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teabuddy/server/internal/assistant"
	"github.com/teabuddy/server/internal/domain"
	"github.com/teabuddy/server/internal/store"
)

const (
	defaultPollInterval = time.Second
	defaultRunTimeout   = 2 * time.Minute
)

// Service coordinates one chat turn at a time. It holds no state of its own;
// all persistence goes through the repository and all remote interaction
// through the gateway.
type Service struct {
	repo         store.Repository
	gw           assistant.Gateway
	pollInterval time.Duration
	runTimeout   time.Duration
}

// Options tunes the run poll loop.
type Options struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// NewService creates a chat service.
func NewService(repo store.Repository, gw assistant.Gateway, opts Options) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	return &Service{
		repo:         repo,
		gw:           gw,
		pollInterval: opts.PollInterval,
		runTimeout:   opts.RunTimeout,
	}
}

// TurnRequest is one incoming chat turn.
type TurnRequest struct {
	Message      string
	ThreadID     string
	TeaSessionID *int64
}

// TurnResult is the assistant's reply and the thread it now belongs to.
type TurnResult struct {
	Reply    string
	ThreadID string
}

// HandleTurn processes one chat turn: resolve or create the remote thread,
// bind it to the tea session, relay the (possibly context-enriched) message,
// wait for the run to finish and persist both turns.
//
// There is no transaction spanning the local writes and the remote calls. A
// failure after the user turn has been logged leaves that row without a
// matching assistant reply; that partial state is accepted and never repaired.
func (s *Service) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	// A tea session reference that doesn't resolve degrades to "no context".
	var session *domain.TeaSession
	if req.TeaSessionID != nil {
		found, err := s.repo.GetSession(ctx, *req.TeaSessionID)
		if err != nil {
			return nil, fmt.Errorf("look up tea session %d: %w", *req.TeaSessionID, err)
		}
		session = found
	}

	// Log the user's turn before any remote call so the input survives a
	// failure later in the flow.
	threadID := normalizeThreadID(req.ThreadID)
	userMsg := &domain.Message{
		Role:    domain.RoleUser,
		Content: req.Message,
	}
	if threadID != "" {
		userMsg.ThreadID = &threadID
	}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("log user message: %w", err)
	}

	if threadID == "" {
		created, err := s.gw.CreateThread(ctx)
		if err != nil {
			return nil, fmt.Errorf("create remote thread: %w", err)
		}
		threadID = created

		if session != nil {
			if err := s.repo.BindSessionThread(ctx, session.ID, threadID); err != nil {
				return nil, fmt.Errorf("bind thread %s to session %d: %w", threadID, session.ID, err)
			}
			slog.Info("bound thread to tea session", "thread_id", threadID, "tea_session_id", session.ID)
		}
	} else {
		// The caller named a thread explicitly; if it no longer resolves we
		// fail the turn rather than silently fabricating a replacement.
		if err := s.gw.RetrieveThread(ctx, threadID); err != nil {
			return nil, err
		}
	}

	relayed := req.Message
	if session != nil {
		relayed = contextMessage(session, req.Message)
	}

	if err := s.gw.PostUserMessage(ctx, threadID, relayed); err != nil {
		return nil, err
	}

	runID, err := s.gw.StartRun(ctx, threadID)
	if err != nil {
		return nil, err
	}

	run, err := s.awaitRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != assistant.RunStatusCompleted {
		return nil, &RunFailedError{Status: run.Status}
	}

	latest, err := s.gw.LatestMessage(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if latest.Kind != assistant.TextKind || latest.Text == "" {
		return nil, ErrNoAssistantReply
	}

	reply := &domain.Message{
		ThreadID: &threadID,
		Role:     domain.RoleAssistant,
		Content:  latest.Text,
	}
	if run.PromptTokens > 0 {
		reply.PromptTokens = &run.PromptTokens
	}
	if run.CompletionTokens > 0 {
		reply.CompletionTokens = &run.CompletionTokens
	}
	if err := s.repo.AppendMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("log assistant message: %w", err)
	}

	return &TurnResult{Reply: latest.Text, ThreadID: threadID}, nil
}

// EnsureSessionThread lazily creates and binds a remote thread for a session
// that has none yet, returning the session's resolved thread id.
func (s *Service) EnsureSessionThread(ctx context.Context, session *domain.TeaSession) (string, error) {
	if session.HasBoundThread() {
		return *session.ThreadID, nil
	}

	threadID, err := s.gw.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create remote thread: %w", err)
	}
	if err := s.repo.BindSessionThread(ctx, session.ID, threadID); err != nil {
		return "", fmt.Errorf("bind thread %s to session %d: %w", threadID, session.ID, err)
	}
	slog.Info("bound thread to tea session", "thread_id", threadID, "tea_session_id", session.ID)
	return threadID, nil
}

// awaitRun polls the run at a fixed interval until it reaches a terminal
// status or the wall-clock bound expires. Each poll is independent and
// idempotent; re-polling a terminal run returns the same status.
func (s *Service) awaitRun(ctx context.Context, threadID, runID string) (assistant.Run, error) {
	deadline := time.Now().Add(s.runTimeout)
	for {
		run, err := s.gw.GetRun(ctx, threadID, runID)
		if err != nil {
			return assistant.Run{}, err
		}
		if !run.Status.Pending() {
			return run, nil
		}
		if time.Now().After(deadline) {
			slog.Warn("assistant run exceeded timeout", "thread_id", threadID, "run_id", runID, "status", run.Status)
			return run, ErrRunTimeout
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// normalizeThreadID maps the "no thread yet" sentinels to the empty string.
func normalizeThreadID(id string) string {
	if id == domain.ThreadSentinel {
		return ""
	}
	return id
}
