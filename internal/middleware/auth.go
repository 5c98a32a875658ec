package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/domain/user"
	"github.com/taskpilot/taskpilot/internal/service"
)

type authUserCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":               true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
}

// Auth returns middleware that validates the bearer credential and
// injects the verified caller into the request context. Two credential
// kinds are accepted: JWT session tokens, and API keys (identified by
// their prefix) whose scopes gate which routes they may call. Every task
// and conversation operation downstream trusts this identity only.
func Auth(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// WebSocket clients cannot set headers; they pass ?token=.
			token := ""
			if r.URL.Path == "/ws" {
				token = r.URL.Query().Get("token")
			} else {
				authHeader := r.Header.Get("Authorization")
				token = strings.TrimPrefix(authHeader, "Bearer ")
				if token == authHeader {
					token = ""
				}
			}
			if token == "" {
				unauthorized(w, "authorization required")
				return
			}

			if strings.HasPrefix(token, user.APIKeyPrefix) {
				authByAPIKey(authSvc, next, w, r, token)
				return
			}

			claims, err := authSvc.ValidateAccessToken(token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			u := &user.User{
				ID:      claims.UserID,
				Email:   claims.Email,
				Name:    claims.Name,
				Enabled: true,
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// authByAPIKey authenticates an API-key credential and enforces its
// scopes against the route being called.
func authByAPIKey(authSvc *service.AuthService, next http.Handler, w http.ResponseWriter, r *http.Request, token string) {
	u, k, err := authSvc.ValidateAPIKey(r.Context(), token)
	if err != nil {
		unauthorized(w, "invalid or expired api key")
		return
	}

	scope, ok := requiredScope(r)
	if !ok {
		forbidden(w, "api keys cannot access this endpoint")
		return
	}
	if !k.HasScope(scope) {
		forbidden(w, "api key is missing the "+scope+" scope")
		return
	}

	next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
}

// requiredScope maps a request to the scope an API key needs for it.
// ok=false marks routes API keys may never call: credential and session
// management stays with interactively issued JWTs.
func requiredScope(r *http.Request) (string, bool) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/chat":
		return user.ScopeChatWrite, true
	case strings.HasPrefix(path, "/api/v1/conversations"):
		return user.ScopeConversationsRead, true
	case strings.HasPrefix(path, "/api/v1/tasks"):
		if r.Method == http.MethodGet {
			return user.ScopeTasksRead, true
		}
		return user.ScopeTasksWrite, true
	}
	return "", false
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"detail":"` + detail + `","code":"` + conversation.CodeUnauthorized + `"}`))
}

func forbidden(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"detail":"` + detail + `","code":"FORBIDDEN"}`))
}

// UserFromContext returns the authenticated user from the request context.
func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(authUserCtxKey{}).(*user.User)
	return u
}

// WithUser injects a user into the context. Exported for handler tests.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, authUserCtxKey{}, u)
}
