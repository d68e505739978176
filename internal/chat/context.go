package chat

import (
	"fmt"
	"strings"

	"github.com/teabuddy/server/internal/domain"
)

// contextMessage prepends the tea session's parameters to the user's message
// so the assistant sees them on the first turn. Optional fields render only
// when present; a pointer check, not a zero check, so a brewing temperature
// of 0°C still renders.
func contextMessage(session *domain.TeaSession, userMessage string) string {
	var b strings.Builder
	b.WriteString("Context: This conversation is about a tea session with the following details:\n")
	fmt.Fprintf(&b, "Tea Type: %s\n", session.TeaType)
	fmt.Fprintf(&b, "Tea Style: %s\n", session.TeaStyle)
	if session.BrewingTemp != nil {
		fmt.Fprintf(&b, "Brewing Temperature: %d°C\n", *session.BrewingTemp)
	}
	if session.SteepTime != nil {
		fmt.Fprintf(&b, "Steep Time: %d seconds\n", *session.SteepTime)
	}
	if session.Notes != nil && *session.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", *session.Notes)
	}
	b.WriteString("\nUser Message: ")
	b.WriteString(userMessage)
	return b.String()
}
