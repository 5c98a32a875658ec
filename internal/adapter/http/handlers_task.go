package http

import (
	"net/http"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/domain/task"
	"github.com/taskpilot/taskpilot/internal/service"
)

// Error codes of the task REST surface.
const (
	codeTaskNotFound = "TASK_NOT_FOUND"
	codeForbidden    = "FORBIDDEN"
)

// writeToolResult maps a gateway result onto the REST surface. The chat
// agent and the REST API share one gateway, so both see identical
// validation and ownership behavior.
func writeToolResult(w http.ResponseWriter, res *service.ToolResult, okStatus int) {
	switch res.Status {
	case service.StatusOK:
		writeJSON(w, okStatus, res)
	case service.StatusValidationError:
		writeAPIError(w, http.StatusBadRequest, res.Message, conversation.CodeInvalidRequest)
	case service.StatusNotFound:
		writeAPIError(w, http.StatusNotFound, res.Message, codeTaskNotFound)
	case service.StatusForbidden:
		writeAPIError(w, http.StatusForbidden, res.Message, codeForbidden)
	default:
		writeAPIError(w, http.StatusInternalServerError, res.Message, conversation.CodeInternalError)
	}
}

// CreateTask creates a task for the authenticated user.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[task.CreateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	writeToolResult(w, h.Tasks.AddTask(r.Context(), owner, req), http.StatusCreated)
}

// ListTasks lists the authenticated user's tasks. ?status= filters by
// completion state.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	writeToolResult(w, h.Tasks.ListTasks(r.Context(), owner, r.URL.Query().Get("status")), http.StatusOK)
}

// ToggleTask flips a task between completed and pending.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	writeToolResult(w, h.Tasks.CompleteTask(r.Context(), owner, urlParam(r, "id")), http.StatusOK)
}

// UpdateTask changes a task's title and/or description.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[task.UpdateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	writeToolResult(w, h.Tasks.UpdateTask(r.Context(), owner, urlParam(r, "id"), req), http.StatusOK)
}

// DeleteTask permanently removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}
	writeToolResult(w, h.Tasks.DeleteTask(r.Context(), owner, urlParam(r, "id")), http.StatusOK)
}
