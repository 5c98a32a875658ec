package http

import (
	"net/http"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/domain/user"
)

// Register creates a new account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}

	u, err := h.Auth.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "user not found", conversation.CodeInvalidRequest)
		return
	}

	// Never echo the password hash.
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
	})
}

// Login authenticates a user and issues an access token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		// Credential failures are deliberately indistinct.
		writeAPIError(w, http.StatusUnauthorized, "invalid credentials", conversation.CodeUnauthorized)
		return
	}
	resp.User.PasswordHash = ""
	writeJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated user's identity.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.Auth.GetUser(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err, "user not found", conversation.CodeInvalidRequest)
		return
	}
	u.PasswordHash = ""
	writeJSON(w, http.StatusOK, u)
}

// CreateAPIKey mints a new API key for the authenticated user. The plain
// key appears only in this response.
func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[user.CreateAPIKeyRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}

	resp, err := h.Auth.CreateAPIKey(r.Context(), owner, &req)
	if err != nil {
		writeDomainError(w, err, "api key not found", conversation.CodeInvalidRequest)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListAPIKeys returns the authenticated user's API keys, newest first.
func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	keys, err := h.Auth.ListAPIKeys(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err, "api key not found", conversation.CodeInvalidRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"api_keys": keys, "count": len(keys)})
}

// DeleteAPIKey revokes one of the authenticated user's API keys.
func (h *Handlers) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.Auth.DeleteAPIKey(r.Context(), urlParam(r, "id"), owner); err != nil {
		writeDomainError(w, err, "api key not found", "API_KEY_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
