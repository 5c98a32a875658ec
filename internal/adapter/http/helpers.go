package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/domain/conversation"
)

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeAPIError(w, http.StatusRequestEntityTooLarge, "request body too large", conversation.CodeInvalidRequest)
		} else {
			writeAPIError(w, http.StatusBadRequest, "invalid request body", conversation.CodeInvalidRequest)
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeAPIError writes the structured error payload of the API boundary.
func writeAPIError(w http.ResponseWriter, status int, detail, code string) {
	writeJSON(w, status, conversation.APIError{Detail: detail, Code: code})
}

// writeDomainError maps a domain error to a status and error code. The
// notFoundDetail message names the missing resource for the caller.
func writeDomainError(w http.ResponseWriter, err error, notFoundDetail, notFoundCode string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		detail := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeAPIError(w, http.StatusBadRequest, detail, conversation.CodeInvalidRequest)
	case errors.Is(err, domain.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, notFoundDetail, notFoundCode)
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeAPIError(w, http.StatusServiceUnavailable, "the assistant is temporarily unavailable, please retry", conversation.CodeProviderUnavailable)
	case errors.Is(err, domain.ErrConflict):
		writeAPIError(w, http.StatusConflict, "resource already exists", conversation.CodeInvalidRequest)
	default:
		slog.Error("request failed", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "internal server error", conversation.CodeInternalError)
	}
}
