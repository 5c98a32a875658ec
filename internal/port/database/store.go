// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/domain/task"
	"github.com/taskpilot/taskpilot/internal/domain/user"
)

// Store is the port interface for durable storage. Implementations must be
// safe for concurrent use; all consistency comes from the transactional
// backend, never from process-local state.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, owner, title, description string) (*task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context, owner string, filter task.StatusFilter) ([]task.Task, error)
	ToggleTask(ctx context.Context, id, owner string) (*task.Task, error)
	UpdateTask(ctx context.Context, id, owner string, req task.UpdateRequest) (*task.Task, error)
	DeleteTask(ctx context.Context, id, owner string) error

	// Conversations. Get and ListRecentMessages report foreign conversations
	// as not found so their existence is never observable across owners.
	CreateConversation(ctx context.Context, owner string) (*conversation.Conversation, error)
	GetConversation(ctx context.Context, id, owner string) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, owner, role, content string) (*conversation.Message, error)
	ListRecentMessages(ctx context.Context, conversationID, owner string, limit int) ([]conversation.Message, error)

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// API keys. Lookup is by hash; the plain key is never stored.
	CreateAPIKey(ctx context.Context, k *user.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*user.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]user.APIKey, error)
	DeleteAPIKey(ctx context.Context, id, userID string) error
}
