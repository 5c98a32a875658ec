package user

import (
	"fmt"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

// APIKeyPrefix marks generated API keys so credentials can be told apart
// from JWTs at the auth boundary.
const APIKeyPrefix = "tpk_"

// API key scopes. Each names one slice of the HTTP surface.
const (
	ScopeTasksRead         = "tasks:read"
	ScopeTasksWrite        = "tasks:write"
	ScopeChatWrite         = "chat:write"
	ScopeConversationsRead = "conversations:read"
	ScopeAdminAll          = "admin:all"
)

// ValidScopes is the set of all recognized API key scopes.
var ValidScopes = map[string]bool{
	ScopeTasksRead:         true,
	ScopeTasksWrite:        true,
	ScopeChatWrite:         true,
	ScopeConversationsRead: true,
	ScopeAdminAll:          true,
}

// APIKey is a stored long-lived credential linked to a user. The plain
// key is never persisted; only its hash is.
type APIKey struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"` // first 8 chars for display
	KeyHash   string    `json:"-"`      // SHA-256 hash, never serialized
	Scopes    []string  `json:"scopes,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the key has an expiry in the past.
func (k *APIKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

// HasScope checks whether the API key grants the required scope. A key
// created without scopes grants everything, as does admin:all.
func (k *APIKey) HasScope(required string) bool {
	if len(k.Scopes) == 0 {
		return true
	}
	for _, s := range k.Scopes {
		if s == required || s == ScopeAdminAll {
			return true
		}
	}
	return false
}

// CreateAPIKeyRequest is the input for creating a new API key.
type CreateAPIKeyRequest struct {
	Name      string   `json:"name"`
	ExpiresIn int      `json:"expires_in,omitempty"` // seconds; 0 = no expiry
	Scopes    []string `json:"scopes,omitempty"`
}

// Validate checks the request fields.
func (r *CreateAPIKeyRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if r.ExpiresIn < 0 {
		return fmt.Errorf("%w: expires_in must not be negative", domain.ErrValidation)
	}
	return ValidateScopes(r.Scopes)
}

// ValidateScopes checks that all scopes are recognized.
func ValidateScopes(scopes []string) error {
	for _, s := range scopes {
		if !ValidScopes[s] {
			return fmt.Errorf("%w: invalid scope %q", domain.ErrValidation, s)
		}
	}
	return nil
}

// CreateAPIKeyResponse is returned after creating an API key. PlainKey
// is shown exactly once, at creation time.
type CreateAPIKeyResponse struct {
	APIKey   APIKey `json:"api_key"`
	PlainKey string `json:"plain_key"`
}
