package constants

import "strings"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// exitWords end the interactive loop.
var exitWords = map[string]struct{}{
	"quit": {},
	"exit": {},
	"q":    {},
	"bye":  {},
}

// IsExitCommand reports whether input asks the interactive loop to stop.
func IsExitCommand(input string) bool {
	_, ok := exitWords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}
