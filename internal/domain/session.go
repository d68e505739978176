// Package domain contains core domain types for the tea study buddy.
package domain

import (
	"time"
)

// ThreadSentinel is the placeholder thread id clients send before a real
// conversation thread has been created remotely.
const ThreadSentinel = "default"

// TeaSession is one logged tea-tasting session. At most one session may be
// bound to a given conversation thread; the store enforces this with a
// uniqueness constraint on the thread id.
type TeaSession struct {
	ID          int64
	ThreadID    *string
	TeaType     string
	TeaStyle    string
	BrewingTemp *int
	SteepTime   *int
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// HasBoundThread returns true if the session is bound to a real remote
// thread, i.e. the thread id is present and not the sentinel value.
func (s *TeaSession) HasBoundThread() bool {
	return s.ThreadID != nil && *s.ThreadID != "" && *s.ThreadID != ThreadSentinel
}

// TeaSteep is one timed infusion within a session. Steep numbers are 1-based,
// assigned as max(existing)+1 and never reused after deletion.
type TeaSteep struct {
	ID              int64
	TeaSessionID    int64
	SteepNumber     int
	Temperature     *int
	SteepTimeMin    *int
	SteepTimeMax    *int
	ActualSteepTime *int
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}
