package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/domain/task"
	"github.com/taskpilot/taskpilot/internal/port/database"
)

// Tool names exposed to the reasoning loop and the MCP server.
const (
	ToolAddTask      = "add_task"
	ToolListTasks    = "list_tasks"
	ToolCompleteTask = "complete_task"
	ToolUpdateTask   = "update_task"
	ToolDeleteTask   = "delete_task"
)

// ToolNames lists all gateway operations in registration order.
var ToolNames = []string{ToolAddTask, ToolListTasks, ToolCompleteTask, ToolUpdateTask, ToolDeleteTask}

// Tool result statuses.
const (
	StatusOK              = "ok"
	StatusValidationError = "validation_error"
	StatusNotFound        = "not_found"
	StatusForbidden       = "forbidden"
	StatusServerError     = "server_error"
)

// ToolResult is the structured outcome of one gateway operation. It is
// ephemeral: handed to the reasoning loop as an observation, never persisted.
type ToolResult struct {
	Status    string      `json:"status"`
	TaskID    string      `json:"task_id,omitempty"`
	Title     string      `json:"title,omitempty"`
	Completed *bool       `json:"completed,omitempty"`
	Tasks     []task.Task `json:"tasks,omitempty"`
	Count     int         `json:"count,omitempty"`
	Message   string      `json:"message"`
}

// OK reports whether the operation succeeded.
func (r *ToolResult) OK() bool { return r.Status == StatusOK }

// ToolGateway exposes the five validated, owner-scoped task operations.
// It is the sole path from the reasoning loop to task data. The caller id
// is supplied by the orchestrator out of band on every call; it is never
// a model-editable argument. The gateway holds no mutable state.
type ToolGateway struct {
	db database.Store
}

// NewToolGateway creates a gateway backed by the given store.
func NewToolGateway(db database.Store) *ToolGateway {
	return &ToolGateway{db: db}
}

// AddTask creates a new task for caller. Description is optional;
// completed defaults to false.
func (g *ToolGateway) AddTask(ctx context.Context, caller string, req task.CreateRequest) *ToolResult {
	if err := req.Validate(); err != nil {
		return validationResult(err)
	}

	t, err := g.db.CreateTask(ctx, caller, req.Title, req.Description)
	if err != nil {
		return serverErrorResult("add_task", err)
	}

	slog.Info("task created", "task_id", t.ID, "owner", caller)
	return &ToolResult{
		Status:  StatusOK,
		TaskID:  t.ID,
		Title:   t.Title,
		Message: fmt.Sprintf("Task %q created successfully", t.Title),
	}
}

// ListTasks returns all of the caller's tasks matching the status filter,
// newest first, plus a count. An empty result is success, not an error.
func (g *ToolGateway) ListTasks(ctx context.Context, caller, status string) *ToolResult {
	filter, err := task.ParseFilter(status)
	if err != nil {
		return validationResult(err)
	}

	tasks, err := g.db.ListTasks(ctx, caller, filter)
	if err != nil {
		return serverErrorResult("list_tasks", err)
	}

	return &ToolResult{
		Status:  StatusOK,
		Tasks:   tasks,
		Count:   len(tasks),
		Message: formatTaskList(tasks),
	}
}

// CompleteTask flips the completed flag of the caller's task. Applying it
// twice returns the task to its original state.
func (g *ToolGateway) CompleteTask(ctx context.Context, caller, taskID string) *ToolResult {
	if res := g.authorize(ctx, caller, taskID); res != nil {
		return res
	}

	t, err := g.db.ToggleTask(ctx, taskID, caller)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFoundResult(taskID)
		}
		return serverErrorResult("complete_task", err)
	}

	state := "marked pending"
	if t.Completed {
		state = "completed"
	}
	return &ToolResult{
		Status:    StatusOK,
		TaskID:    t.ID,
		Title:     t.Title,
		Completed: &t.Completed,
		Message:   fmt.Sprintf("Task %q (ID: %s) %s", t.Title, t.ID, state),
	}
}

// UpdateTask changes the caller's task title and/or description. At least
// one field must be provided.
func (g *ToolGateway) UpdateTask(ctx context.Context, caller, taskID string, req task.UpdateRequest) *ToolResult {
	if err := req.Validate(); err != nil {
		return validationResult(err)
	}
	if res := g.authorize(ctx, caller, taskID); res != nil {
		return res
	}

	t, err := g.db.UpdateTask(ctx, taskID, caller, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFoundResult(taskID)
		}
		return serverErrorResult("update_task", err)
	}

	return &ToolResult{
		Status:  StatusOK,
		TaskID:  t.ID,
		Title:   t.Title,
		Message: fmt.Sprintf("Updated task (ID: %s), new title: %q", t.ID, t.Title),
	}
}

// DeleteTask permanently removes the caller's task. This cannot be undone.
func (g *ToolGateway) DeleteTask(ctx context.Context, caller, taskID string) *ToolResult {
	if res := g.authorize(ctx, caller, taskID); res != nil {
		return res
	}

	if err := g.db.DeleteTask(ctx, taskID, caller); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFoundResult(taskID)
		}
		return serverErrorResult("delete_task", err)
	}

	slog.Info("task deleted", "task_id", taskID, "owner", caller)
	return &ToolResult{
		Status:  StatusOK,
		TaskID:  taskID,
		Message: fmt.Sprintf("Deleted task (ID: %s)", taskID),
	}
}

// authorize resolves the target task and checks ownership. Returns nil
// when the caller may proceed, otherwise a terminal result: a missing
// task is not_found, a foreign task is forbidden.
func (g *ToolGateway) authorize(ctx context.Context, caller, taskID string) *ToolResult {
	if taskID == "" {
		return &ToolResult{
			Status:  StatusValidationError,
			Message: "task_id is required",
		}
	}

	t, err := g.db.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFoundResult(taskID)
		}
		return serverErrorResult("resolve_task", err)
	}
	if t.Owner != caller {
		slog.Warn("task ownership mismatch", "task_id", taskID, "caller", caller)
		return &ToolResult{
			Status:  StatusForbidden,
			TaskID:  taskID,
			Message: "You are not allowed to access this task",
		}
	}
	return nil
}

func validationResult(err error) *ToolResult {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	return &ToolResult{Status: StatusValidationError, Message: msg}
}

func notFoundResult(taskID string) *ToolResult {
	return &ToolResult{
		Status:  StatusNotFound,
		TaskID:  taskID,
		Message: fmt.Sprintf("Task %s not found", taskID),
	}
}

func serverErrorResult(op string, err error) *ToolResult {
	slog.Error("tool gateway storage failure", "op", op, "error", err)
	return &ToolResult{
		Status:  StatusServerError,
		Message: "A storage error occurred, please try again",
	}
}

// formatTaskList renders tasks as a short text block for the reasoning
// loop to relay.
func formatTaskList(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "You have no tasks."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your tasks (%d total):", len(tasks))
	for i := range tasks {
		state := "pending"
		if tasks[i].Completed {
			state = "done"
		}
		fmt.Fprintf(&sb, "\n- [%s] %s (%s)", tasks[i].ID, tasks[i].Title, state)
	}
	return sb.String()
}
