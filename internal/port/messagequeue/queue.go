// Package messagequeue defines the message queue port and wire payloads.
package messagequeue

import "context"

// Subjects for chat turn events.
const (
	SubjectTurnUser      = "chat.turns.user"
	SubjectTurnAssistant = "chat.turns.assistant"
)

// Handler processes a received message.
type Handler func(subject string, data []byte) error

// Queue is the port interface for publish/subscribe messaging.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}

// TurnEventPayload is published after a message is durably persisted.
type TurnEventPayload struct {
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id"`
	Role           string   `json:"role"`
	ToolCalls      []string `json:"tool_calls,omitempty"`
}
