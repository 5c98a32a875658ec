package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/domain/user"
)

func registerTestUser(t *testing.T, svc *AuthService) *user.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &user.CreateRequest{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func TestCreateAndValidateAPIKey(t *testing.T) {
	store := newMockStore()
	svc := newAuthService(store)
	ctx := context.Background()
	u := registerTestUser(t, svc)

	resp, err := svc.CreateAPIKey(ctx, u.ID, &user.CreateAPIKeyRequest{
		Name:   "ci-key",
		Scopes: []string{user.ScopeTasksRead},
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if !strings.HasPrefix(resp.PlainKey, user.APIKeyPrefix) {
		t.Fatalf("plain key %q lacks the %q prefix", resp.PlainKey, user.APIKeyPrefix)
	}
	if resp.APIKey.KeyHash == resp.PlainKey || strings.Contains(resp.APIKey.KeyHash, resp.PlainKey) {
		t.Fatal("plain key leaked into the stored record")
	}

	gotUser, gotKey, err := svc.ValidateAPIKey(ctx, resp.PlainKey)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if gotUser.ID != u.ID {
		t.Fatalf("key resolved to user %s, want %s", gotUser.ID, u.ID)
	}
	if !gotKey.HasScope(user.ScopeTasksRead) || gotKey.HasScope(user.ScopeTasksWrite) {
		t.Fatalf("unexpected scopes %v", gotKey.Scopes)
	}
}

func TestValidateAPIKeyUnknown(t *testing.T) {
	store := newMockStore()
	svc := newAuthService(store)

	if _, _, err := svc.ValidateAPIKey(context.Background(), "tpk_nonexistent"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidateAPIKeyExpired(t *testing.T) {
	store := newMockStore()
	svc := newAuthService(store)
	ctx := context.Background()
	u := registerTestUser(t, svc)

	resp, err := svc.CreateAPIKey(ctx, u.ID, &user.CreateAPIKeyRequest{Name: "ephemeral", ExpiresIn: 60})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	store.apiKeys[resp.APIKey.ID].ExpiresAt = time.Now().Add(-time.Minute)

	if _, _, err := svc.ValidateAPIKey(ctx, resp.PlainKey); err == nil {
		t.Fatal("expected error for expired key")
	}
}

func TestValidateAPIKeyDisabledAccount(t *testing.T) {
	store := newMockStore()
	svc := newAuthService(store)
	ctx := context.Background()
	u := registerTestUser(t, svc)

	resp, err := svc.CreateAPIKey(ctx, u.ID, &user.CreateAPIKeyRequest{Name: "ci-key"})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	store.users[u.ID].Enabled = false

	if _, _, err := svc.ValidateAPIKey(ctx, resp.PlainKey); err == nil {
		t.Fatal("expected error for disabled account")
	}
}

func TestDeleteAPIKeyRevokes(t *testing.T) {
	store := newMockStore()
	svc := newAuthService(store)
	ctx := context.Background()
	u := registerTestUser(t, svc)

	resp, err := svc.CreateAPIKey(ctx, u.ID, &user.CreateAPIKeyRequest{Name: "ci-key"})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if err := svc.DeleteAPIKey(ctx, resp.APIKey.ID, u.ID); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	if _, _, err := svc.ValidateAPIKey(ctx, resp.PlainKey); err == nil {
		t.Fatal("revoked key still validates")
	}
}

func TestDeleteAPIKeyForeignOwner(t *testing.T) {
	store := newMockStore()
	svc := newAuthService(store)
	ctx := context.Background()
	u := registerTestUser(t, svc)

	resp, err := svc.CreateAPIKey(ctx, u.ID, &user.CreateAPIKeyRequest{Name: "ci-key"})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	if err := svc.DeleteAPIKey(ctx, resp.APIKey.ID, "someone-else"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if _, _, err := svc.ValidateAPIKey(ctx, resp.PlainKey); err != nil {
		t.Fatalf("key should survive a foreign delete attempt: %v", err)
	}
}
