package mcp

import (
	"context"
	"net/http"
	"strings"
)

type callerCtxKey struct{}

// AuthMiddleware validates the Authorization bearer token and stores the
// verified caller id on the request context. When tokens is nil the
// middleware passes requests through unauthenticated; tool handlers then
// reject every call for lack of a caller.
func AuthMiddleware(tokens TokenValidator, next http.Handler) http.Handler {
	if tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			http.Error(w, "bearer token required", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), callerCtxKey{}, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// propagateCaller copies the verified caller id from the HTTP request
// context into the tool handler context.
func propagateCaller(ctx context.Context, r *http.Request) context.Context {
	if id, ok := r.Context().Value(callerCtxKey{}).(string); ok && id != "" {
		return context.WithValue(ctx, callerCtxKey{}, id)
	}
	return ctx
}

// CallerFromContext returns the verified caller id, or "" when the
// request was not authenticated.
func CallerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(callerCtxKey{}).(string)
	return id
}

// WithCaller injects a caller id into the context. Exported for tests.
func WithCaller(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, id)
}
