// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/teabuddy/server/internal/domain"
)

// ErrNotFound is returned by update/delete operations when no row matched.
// Lookups return (nil, nil) for missing rows instead.
var ErrNotFound = errors.New("store: not found")

// Repository defines the interface for persisting tea sessions, steeps and
// the chat message log.
type Repository interface {
	// CreateSession inserts a new tea session and fills in its ID.
	CreateSession(ctx context.Context, session *domain.TeaSession) error

	// GetSession retrieves a tea session by id. Returns nil if absent.
	GetSession(ctx context.Context, id int64) (*domain.TeaSession, error)

	// ListSessions returns all tea sessions, newest first.
	ListSessions(ctx context.Context) ([]*domain.TeaSession, error)

	// UpdateSession updates the mutable fields of a session (tea type/style,
	// brewing temp, steep time, notes) and stamps updated_at.
	UpdateSession(ctx context.Context, session *domain.TeaSession) error

	// BindSessionThread binds a remote conversation thread to a session and
	// stamps updated_at. The unique constraint on thread_id rejects binding
	// the same thread to a second session.
	BindSessionThread(ctx context.Context, sessionID int64, threadID string) error

	// DeleteSessionCascade deletes a session together with its steeps and all
	// messages logged under its bound thread, in one transaction. The remote
	// thread is not touched; that cleanup is the caller's concern.
	DeleteSessionCascade(ctx context.Context, id int64) error

	// CreateSteep inserts a new steep for a session, assigning the next steep
	// number (max existing + 1, numbers are never reused).
	CreateSteep(ctx context.Context, steep *domain.TeaSteep) error

	// GetSteep retrieves one steep scoped to a session. Returns nil if absent.
	GetSteep(ctx context.Context, sessionID, steepID int64) (*domain.TeaSteep, error)

	// ListSteeps returns a session's steeps ordered by steep number.
	ListSteeps(ctx context.Context, sessionID int64) ([]*domain.TeaSteep, error)

	// UpdateSteep updates the mutable fields of a steep and stamps updated_at.
	UpdateSteep(ctx context.Context, steep *domain.TeaSteep) error

	// DeleteSteep deletes one steep scoped to a session.
	DeleteSteep(ctx context.Context, sessionID, steepID int64) error

	// AppendMessage appends a chat turn to the message log and fills in its
	// ID. The log is append-only; there is no update.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// ListThreadMessages returns all messages for a thread in creation order.
	ListThreadMessages(ctx context.Context, threadID string) ([]*domain.Message, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
