package logger

import "context"

type contextKey struct{}

// requestIDKey carries the id assigned by the request-id middleware.
var requestIDKey = contextKey{}

// WithRequestID stores a request id on the context for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored on the context, or "" when the
// request never passed through the request-id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
