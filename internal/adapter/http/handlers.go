package http

import (
	"context"
	"net/http"

	"github.com/taskpilot/taskpilot/internal/adapter/otel"
	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/middleware"
	"github.com/taskpilot/taskpilot/internal/service"
)

const defaultMaxRequestBodySize = 1 << 20 // 1 MB

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Chat    *service.ChatService
	Tasks   *service.ToolGateway
	Auth    *service.AuthService
	DB      HealthChecker
	Metrics *otel.Metrics
	MaxBody int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.MaxBody > 0 {
		return h.MaxBody
	}
	return defaultMaxRequestBodySize
}

// caller returns the authenticated user id, writing a 401 when absent.
// The auth middleware populates the context on every protected route, so
// a miss here means a wiring bug rather than a client error.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeAPIError(w, http.StatusUnauthorized, "authorization required", conversation.CodeUnauthorized)
		return "", false
	}
	return u.ID, true
}

// Health reports liveness plus database readiness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}
