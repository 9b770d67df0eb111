package entity

import (
	"time"

	"github.com/joseph-ayodele/docverify/constants"
)

// Message is one entry of the conversation log.
type Message struct {
	Role      constants.Role `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

func (m Message) IsUser() bool { return m.Role == constants.RoleUser }

// UserMessage builds a user message stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: constants.RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// AssistantMessage builds an assistant message stamped with the current time.
func AssistantMessage(content string) Message {
	return Message{Role: constants.RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}
