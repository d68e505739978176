package chat

import (
	"errors"
	"fmt"

	"github.com/teabuddy/server/internal/assistant"
)

var (
	// ErrEmptyMessage is returned when a turn arrives without message text.
	ErrEmptyMessage = errors.New("chat: message must not be empty")

	// ErrNoAssistantReply is returned when a run completes but the thread's
	// newest message has no usable text content.
	ErrNoAssistantReply = errors.New("chat: assistant produced no usable reply")

	// ErrRunTimeout is returned when a run stays pending past the configured
	// wall-clock bound.
	ErrRunTimeout = errors.New("chat: assistant run timed out")
)

// RunFailedError reports a run that ended in a non-success terminal state.
type RunFailedError struct {
	Status assistant.RunStatus
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("chat: assistant run ended with status %q", e.Status)
}
