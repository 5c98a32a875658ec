// Package conversation defines chat sessions and their messages.
package conversation

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// Message roles. Tool invocations are never stored as messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxMessageLen bounds a single chat message, counted in characters
// rather than bytes so multi-byte input gets the full budget.
const MaxMessageLen = 5000

// HistoryLimit is the maximum number of messages loaded per request.
const HistoryLimit = 50

// Conversation represents one chat session owned by a single user for
// its entire lifetime.
type Conversation struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn within a conversation. Owner is denormalized
// from the parent conversation so isolation checks need no join.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Owner          string    `json:"owner"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatRequest is the body of the chat operation.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Validate checks the message length bound.
func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLen {
		return fmt.Errorf("%w: message must be at most %d characters", domain.ErrValidation, MaxMessageLen)
	}
	return nil
}

// ChatResponse is returned on a successful chat turn.
type ChatResponse struct {
	ConversationID string   `json:"conversation_id"`
	Response       string   `json:"response"`
	ToolCalls      []string `json:"tool_calls"`
}

// Error codes exposed at the chat boundary.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	CodeProviderUnavailable  = "AI_PROVIDER_UNAVAILABLE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// APIError is the structured error payload of the chat boundary.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}
