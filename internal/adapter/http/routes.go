package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. The auth
// middleware wraps the whole tree; /health and the auth entry points are
// exempted there, not here.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth (login/register are exempt from the auth middleware;
		// key management requires a session token, not an API key)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.Me)
		r.Post("/auth/apikeys", h.CreateAPIKey)
		r.Get("/auth/apikeys", h.ListAPIKeys)
		r.Delete("/auth/apikeys/{id}", h.DeleteAPIKey)

		// Chat
		r.Post("/chat", h.HandleChat)
		r.Get("/conversations/{id}/messages", h.ListConversationMessages)

		// Tasks (same gateway the chat agent uses)
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks/{id}/toggle", h.ToggleTask)
		r.Put("/tasks/{id}", h.UpdateTask)
		r.Delete("/tasks/{id}", h.DeleteTask)
	})
}
