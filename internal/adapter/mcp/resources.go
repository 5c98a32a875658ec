package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"taskpilot://tasks",
			"Task List",
			mcplib.WithResourceDescription("The authenticated user's task list"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksResource,
	)
}

func (s *Server) handleTasksResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	errorContents := func(msg string) []mcplib.ResourceContents {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":` + string(mustJSON(msg)) + `}`,
			},
		}
	}

	if s.deps.Gateway == nil {
		return errorContents("task gateway not configured"), nil
	}
	caller := CallerFromContext(ctx)
	if caller == "" {
		return errorContents("authentication required"), nil
	}

	res := s.deps.Gateway.ListTasks(ctx, caller, "")
	if !res.OK() {
		return errorContents(res.Message), nil
	}

	data, err := json.Marshal(res.Tasks)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func mustJSON(s string) []byte {
	data, _ := json.Marshal(s)
	return data
}
