package user

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain"
)

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr string
	}{
		{name: "valid", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "12345678"}},
		{name: "missing email", req: CreateRequest{Name: "A", Password: "12345678"}, wantErr: "email"},
		{name: "email without at sign", req: CreateRequest{Email: "bad", Name: "A", Password: "12345678"}, wantErr: "email"},
		{name: "missing name", req: CreateRequest{Email: "a@b.com", Password: "12345678"}, wantErr: "name is required"},
		{name: "missing password", req: CreateRequest{Email: "a@b.com", Name: "A"}, wantErr: "at least 8 characters"},
		{name: "short password", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "short"}, wantErr: "at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     LoginRequest
		wantErr bool
	}{
		{name: "valid", req: LoginRequest{Email: "a@b.com", Password: "secret"}},
		{name: "missing email", req: LoginRequest{Password: "secret"}, wantErr: true},
		{name: "missing password", req: LoginRequest{Email: "a@b.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateAPIKeyRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateAPIKeyRequest
		wantErr bool
	}{
		{name: "valid", req: CreateAPIKeyRequest{Name: "ci-key"}},
		{name: "valid with scopes", req: CreateAPIKeyRequest{Name: "ci-key", Scopes: []string{ScopeTasksRead, ScopeChatWrite}}},
		{name: "missing name", req: CreateAPIKeyRequest{}, wantErr: true},
		{name: "negative expiry", req: CreateAPIKeyRequest{Name: "ci-key", ExpiresIn: -1}, wantErr: true},
		{name: "unknown scope", req: CreateAPIKeyRequest{Name: "ci-key", Scopes: []string{"tasks:admin"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAPIKeyHasScope(t *testing.T) {
	tests := []struct {
		name     string
		scopes   []string
		required string
		want     bool
	}{
		{name: "unscoped key grants everything", scopes: nil, required: ScopeTasksWrite, want: true},
		{name: "exact match", scopes: []string{ScopeTasksRead}, required: ScopeTasksRead, want: true},
		{name: "missing scope", scopes: []string{ScopeTasksRead}, required: ScopeTasksWrite, want: false},
		{name: "admin grants everything", scopes: []string{ScopeAdminAll}, required: ScopeChatWrite, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := APIKey{Scopes: tt.scopes}
			if got := k.HasScope(tt.required); got != tt.want {
				t.Fatalf("HasScope(%q) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}

func TestAPIKeyExpired(t *testing.T) {
	now := time.Now()

	k := APIKey{}
	if k.Expired(now) {
		t.Fatal("key without expiry must never expire")
	}

	k.ExpiresAt = now.Add(time.Hour)
	if k.Expired(now) {
		t.Fatal("future expiry reported as expired")
	}

	k.ExpiresAt = now.Add(-time.Hour)
	if !k.Expired(now) {
		t.Fatal("past expiry not reported as expired")
	}
}
