package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/domain/user"
	"github.com/taskpilot/taskpilot/internal/port/database"
	"github.com/taskpilot/taskpilot/internal/service"
)

// keyStore embeds the Store interface and implements only what API-key
// authentication touches. Calling anything else panics.
type keyStore struct {
	database.Store

	keys  map[string]*user.APIKey // by hash
	users map[string]*user.User
}

func newKeyStore() *keyStore {
	return &keyStore{
		keys:  make(map[string]*user.APIKey),
		users: make(map[string]*user.User),
	}
}

func (s *keyStore) CreateAPIKey(_ context.Context, k *user.APIKey) error {
	cp := *k
	s.keys[k.KeyHash] = &cp
	return nil
}

func (s *keyStore) GetAPIKeyByHash(_ context.Context, keyHash string) (*user.APIKey, error) {
	k, ok := s.keys[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *keyStore) GetUser(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestAuth(t *testing.T) (*service.AuthService, string) {
	t.Helper()
	svc := service.NewAuthService(nil, &config.Auth{
		JWTSecret:         "middleware-test-secret",
		AccessTokenExpiry: time.Minute,
		BcryptCost:        4,
	})
	token, err := svc.IssueToken(&user.User{ID: "user-1", Email: "alice@example.com", Name: "Alice"})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return svc, token
}

func protected(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			t.Error("no user in context behind auth middleware")
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	svc, token := newTestAuth(t)
	handler := Auth(svc)(protected(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	svc, _ := newTestAuth(t)
	handler := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler reached without credentials")
	}))

	for name, build := range map[string]func() *http.Request{
		"no header": func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
		},
		"not bearer": func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
			r.Header.Set("Authorization", "Basic abc")
			return r
		},
		"garbage token": func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
			r.Header.Set("Authorization", "Bearer not.a.jwt")
			return r
		},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, build())
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Errorf("%s: non-JSON 401 body %q", name, rec.Body.String())
			continue
		}
		if body["code"] != "UNAUTHORIZED" {
			t.Errorf("%s: code = %q, want UNAUTHORIZED", name, body["code"])
		}
	}
}

func TestAuthSkipsPublicPaths(t *testing.T) {
	svc, _ := newTestAuth(t)
	reached := false
	handler := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/api/v1/auth/login", "/api/v1/auth/register"} {
		reached = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, http.NoBody))
		if !reached {
			t.Errorf("public path %s was blocked", path)
		}
	}
}

func TestAuthWebsocketTokenQuery(t *testing.T) {
	svc, token := newTestAuth(t)
	handler := Auth(svc)(protected(t))

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}
}

func newTestAPIKey(t *testing.T, scopes []string) (*service.AuthService, string) {
	t.Helper()
	store := newKeyStore()
	store.users["user-1"] = &user.User{ID: "user-1", Email: "alice@example.com", Name: "Alice", Enabled: true}

	svc := service.NewAuthService(store, &config.Auth{
		JWTSecret:         "middleware-test-secret",
		AccessTokenExpiry: time.Minute,
		BcryptCost:        4,
	})
	resp, err := svc.CreateAPIKey(context.Background(), "user-1", &user.CreateAPIKeyRequest{
		Name:   "test-key",
		Scopes: scopes,
	})
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	return svc, resp.PlainKey
}

func TestAuthAcceptsAPIKeyWithScope(t *testing.T) {
	svc, key := newTestAPIKey(t, []string{user.ScopeTasksRead})
	handler := Auth(svc)(protected(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRejectsAPIKeyMissingScope(t *testing.T) {
	svc, key := newTestAPIKey(t, []string{user.ScopeTasksRead})
	handler := Auth(svc)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached without the required scope")
	}))

	// A read-only key must not create tasks or chat.
	for _, build := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/v1/tasks", http.NoBody),
		httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody),
	} {
		build.Header.Set("Authorization", "Bearer "+key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, build)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want 403", build.Method, build.URL.Path, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["code"] != "FORBIDDEN" {
			t.Errorf("%s %s: body %q, want code FORBIDDEN", build.Method, build.URL.Path, rec.Body.String())
		}
	}
}

func TestAuthAPIKeyCannotManageCredentials(t *testing.T) {
	svc, key := newTestAPIKey(t, nil) // unscoped key grants all scopes
	handler := Auth(svc)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("credential management reached with an api key")
	}))

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/auth/apikeys"} {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		req.Header.Set("Authorization", "Bearer "+key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", path, rec.Code)
		}
	}
}

func TestAuthRejectsUnknownAPIKey(t *testing.T) {
	svc, _ := newTestAPIKey(t, nil)
	handler := Auth(svc)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached with an unknown key")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+user.APIKeyPrefix+"deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
