package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskpilot/taskpilot/internal/domain/task"
	"github.com/taskpilot/taskpilot/internal/service"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.addTaskTool(),
		s.listTasksTool(),
		s.completeTaskTool(),
		s.updateTaskTool(),
		s.deleteTaskTool(),
	)
}

func (s *Server) addTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(service.ToolAddTask,
		mcplib.WithDescription("Create a new task for the authenticated user"),
		mcplib.WithString("title",
			mcplib.Required(),
			mcplib.Description("Short task title, at most 200 characters"),
		),
		mcplib.WithString("description",
			mcplib.Description("Optional longer description, at most 1000 characters"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleAddTask}
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(service.ToolListTasks,
		mcplib.WithDescription("List the authenticated user's tasks, newest first"),
		mcplib.WithString("status",
			mcplib.Description("Filter by completion state: all, pending, or completed"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTasks}
}

func (s *Server) completeTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(service.ToolCompleteTask,
		mcplib.WithDescription("Toggle a task between completed and pending"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The id of the task to toggle"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCompleteTask}
}

func (s *Server) updateTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(service.ToolUpdateTask,
		mcplib.WithDescription("Change a task's title and/or description"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The id of the task to update"),
		),
		mcplib.WithString("title",
			mcplib.Description("New title, at most 200 characters"),
		),
		mcplib.WithString("description",
			mcplib.Description("New description, at most 1000 characters"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUpdateTask}
}

func (s *Server) deleteTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(service.ToolDeleteTask,
		mcplib.WithDescription("Permanently delete a task"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The id of the task to delete"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleDeleteTask}
}

// resolve returns the gateway and caller, or an error result when either
// is unavailable.
func (s *Server) resolve(ctx context.Context) (TaskGateway, string, *mcplib.CallToolResult) {
	if s.deps.Gateway == nil {
		return nil, "", mcplib.NewToolResultError("task gateway not configured")
	}
	caller := CallerFromContext(ctx)
	if caller == "" {
		return nil, "", mcplib.NewToolResultError("authentication required")
	}
	return s.deps.Gateway, caller, nil
}

// render maps a gateway result onto the MCP wire format. Failed
// operations become error results so the client model can react.
func render(res *service.ToolResult) *mcplib.CallToolResult {
	if !res.OK() {
		return mcplib.NewToolResultError(res.Message)
	}
	data, err := json.Marshal(res)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err)
	}
	return mcplib.NewToolResultText(string(data))
}

func (s *Server) handleAddTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	gw, caller, errRes := s.resolve(ctx)
	if errRes != nil {
		return errRes, nil
	}
	args := req.GetArguments()
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)
	return render(gw.AddTask(ctx, caller, task.CreateRequest{Title: title, Description: description})), nil
}

func (s *Server) handleListTasks(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	gw, caller, errRes := s.resolve(ctx)
	if errRes != nil {
		return errRes, nil
	}
	status, _ := req.GetArguments()["status"].(string)
	return render(gw.ListTasks(ctx, caller, status)), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	gw, caller, errRes := s.resolve(ctx)
	if errRes != nil {
		return errRes, nil
	}
	taskID, ok := req.GetArguments()["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	return render(gw.CompleteTask(ctx, caller, taskID)), nil
}

func (s *Server) handleUpdateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	gw, caller, errRes := s.resolve(ctx)
	if errRes != nil {
		return errRes, nil
	}
	args := req.GetArguments()
	taskID, ok := args["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	var upd task.UpdateRequest
	if title, ok := args["title"].(string); ok {
		upd.Title = &title
	}
	if description, ok := args["description"].(string); ok {
		upd.Description = &description
	}
	return render(gw.UpdateTask(ctx, caller, taskID, upd)), nil
}

func (s *Server) handleDeleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	gw, caller, errRes := s.resolve(ctx)
	if errRes != nil {
		return errRes, nil
	}
	taskID, ok := req.GetArguments()["task_id"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("task_id is required"), nil
	}
	return render(gw.DeleteTask(ctx, caller, taskID)), nil
}
