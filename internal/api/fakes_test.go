package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teabuddy/server/internal/assistant"
	"github.com/teabuddy/server/internal/chat"
	"github.com/teabuddy/server/internal/domain"
	"github.com/teabuddy/server/internal/store"
)

type fakeRepo struct {
	mu       sync.Mutex
	sessions map[int64]*domain.TeaSession
	steeps   map[int64]*domain.TeaSteep
	messages []*domain.Message
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sessions: make(map[int64]*domain.TeaSession),
		steeps:   make(map[int64]*domain.TeaSteep),
	}
}

func (f *fakeRepo) CreateSession(_ context.Context, s *domain.TeaSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	copy := *s
	f.sessions[s.ID] = &copy
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, id int64) (*domain.TeaSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	if s == nil {
		return nil, nil
	}
	copy := *s
	return &copy, nil
}

func (f *fakeRepo) ListSessions(_ context.Context) ([]*domain.TeaSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TeaSession
	for _, s := range f.sessions {
		copy := *s
		out = append(out, &copy)
	}
	return out, nil
}

func (f *fakeRepo) UpdateSession(_ context.Context, s *domain.TeaSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions[s.ID] == nil {
		return store.ErrNotFound
	}
	copy := *s
	f.sessions[s.ID] = &copy
	return nil
}

func (f *fakeRepo) BindSessionThread(_ context.Context, sessionID int64, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[sessionID]
	if s == nil {
		return store.ErrNotFound
	}
	s.ThreadID = &threadID
	return nil
}

func (f *fakeRepo) DeleteSessionCascade(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	if s == nil {
		return store.ErrNotFound
	}
	delete(f.sessions, id)
	for steepID, steep := range f.steeps {
		if steep.TeaSessionID == id {
			delete(f.steeps, steepID)
		}
	}
	if s.ThreadID != nil {
		var kept []*domain.Message
		for _, m := range f.messages {
			if m.ThreadID == nil || *m.ThreadID != *s.ThreadID {
				kept = append(kept, m)
			}
		}
		f.messages = kept
	}
	return nil
}

func (f *fakeRepo) CreateSteep(_ context.Context, steep *domain.TeaSteep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	steep.ID = f.nextID
	max := 0
	for _, s := range f.steeps {
		if s.TeaSessionID == steep.TeaSessionID && s.SteepNumber > max {
			max = s.SteepNumber
		}
	}
	steep.SteepNumber = max + 1
	if steep.CreatedAt.IsZero() {
		steep.CreatedAt = time.Now()
	}
	copy := *steep
	f.steeps[steep.ID] = &copy
	return nil
}

func (f *fakeRepo) GetSteep(_ context.Context, sessionID, steepID int64) (*domain.TeaSteep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.steeps[steepID]
	if s == nil || s.TeaSessionID != sessionID {
		return nil, nil
	}
	copy := *s
	return &copy, nil
}

func (f *fakeRepo) ListSteeps(_ context.Context, sessionID int64) ([]*domain.TeaSteep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TeaSteep
	for _, s := range f.steeps {
		if s.TeaSessionID == sessionID {
			copy := *s
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateSteep(_ context.Context, steep *domain.TeaSteep) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := f.steeps[steep.ID]
	if existing == nil || existing.TeaSessionID != steep.TeaSessionID {
		return store.ErrNotFound
	}
	copy := *steep
	f.steeps[steep.ID] = &copy
	return nil
}

func (f *fakeRepo) DeleteSteep(_ context.Context, sessionID, steepID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.steeps[steepID]
	if s == nil || s.TeaSessionID != sessionID {
		return store.ErrNotFound
	}
	delete(f.steeps, steepID)
	return nil
}

func (f *fakeRepo) AppendMessage(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	copy := *msg
	f.messages = append(f.messages, &copy)
	return nil
}

func (f *fakeRepo) ListThreadMessages(_ context.Context, threadID string) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, m := range f.messages {
		if m.ThreadID != nil && *m.ThreadID == threadID {
			copy := *m
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }

func (f *fakeRepo) Close() error { return nil }

type fakeGateway struct {
	mu        sync.Mutex
	created   int
	threadID  string
	deleted   []string
	deleteErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{threadID: "thread-new"}
}

func (f *fakeGateway) CreateThread(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f.threadID, nil
}

func (f *fakeGateway) RetrieveThread(_ context.Context, _ string) error { return nil }

func (f *fakeGateway) PostUserMessage(_ context.Context, _, _ string) error { return nil }

func (f *fakeGateway) StartRun(_ context.Context, _ string) (string, error) { return "run-1", nil }

func (f *fakeGateway) GetRun(_ context.Context, _, _ string) (assistant.Run, error) {
	return assistant.Run{}, errors.New("not implemented")
}

func (f *fakeGateway) LatestMessage(_ context.Context, _ string) (assistant.ThreadMessage, error) {
	return assistant.ThreadMessage{}, errors.New("not implemented")
}

func (f *fakeGateway) DeleteThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, threadID)
	return f.deleteErr
}

type fakeChatService struct {
	result  *chat.TurnResult
	err     error
	lastReq chat.TurnRequest

	ensureThreadID string
	ensureErr      error
	ensured        []int64
}

func (f *fakeChatService) HandleTurn(_ context.Context, req chat.TurnRequest) (*chat.TurnResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeChatService) EnsureSessionThread(_ context.Context, session *domain.TeaSession) (string, error) {
	f.ensured = append(f.ensured, session.ID)
	if f.ensureErr != nil {
		return "", f.ensureErr
	}
	if session.HasBoundThread() {
		return *session.ThreadID, nil
	}
	return f.ensureThreadID, nil
}
