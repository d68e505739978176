// Package assistant implements the remote conversation gateway for the AI
// study buddy. Threads, runs and their messages live on the remote service;
// this package only relays and reports status.
package assistant

import (
	"context"
	"errors"
)

// ErrThreadNotFound is returned when a caller-supplied thread id no longer
// resolves on the remote service.
var ErrThreadNotFound = errors.New("assistant: thread not found")

// RunStatus is the lifecycle status of a remote assistant run.
type RunStatus string

// Run statuses mirrored from the remote service.
const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
	RunStatusExpired    RunStatus = "expired"
)

// Pending returns true while the run is still being processed remotely.
// Every other status (recognized or not) is terminal.
func (s RunStatus) Pending() bool {
	return s == RunStatusQueued || s == RunStatusInProgress
}

// Run is a snapshot of a remote run's state.
type Run struct {
	ID               string
	Status           RunStatus
	PromptTokens     int
	CompletionTokens int
}

// ThreadMessage is the newest message fetched from a remote thread.
type ThreadMessage struct {
	Role string
	Kind string // content kind, e.g. "text" or "image_file"
	Text string
}

// TextKind is the only content kind the reconciler can persist.
const TextKind = "text"

// Gateway defines the interface to the remote conversation service.
// Each operation is a single remote call; there is no retry layer here.
type Gateway interface {
	// CreateThread creates a new remote conversation thread.
	CreateThread(ctx context.Context) (string, error)

	// RetrieveThread verifies that a thread still exists remotely.
	// Returns ErrThreadNotFound if it does not resolve.
	RetrieveThread(ctx context.Context, threadID string) error

	// PostUserMessage appends a user message to a thread.
	PostUserMessage(ctx context.Context, threadID, content string) error

	// StartRun starts an assistant run against a thread's messages.
	StartRun(ctx context.Context, threadID string) (runID string, err error)

	// GetRun fetches the current state of a run. Re-polling a terminal run
	// returns the same terminal status.
	GetRun(ctx context.Context, threadID, runID string) (Run, error)

	// LatestMessage fetches the most recent message in a thread.
	LatestMessage(ctx context.Context, threadID string) (ThreadMessage, error)

	// DeleteThread deletes a remote thread. Used by session deletion only.
	DeleteThread(ctx context.Context, threadID string) error
}
