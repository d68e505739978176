package domain

import (
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one chat turn in the append-only message log. ThreadID is nil
// for user turns logged before any remote thread existed; it is not a foreign
// key, since a thread may exist before any session binds to it.
type Message struct {
	ID               int64
	ThreadID         *string
	Role             string
	Content          string
	PromptTokens     *int
	CompletionTokens *int
	CreatedAt        time.Time
}
