// Package mcp exposes the task tools over the Model Context Protocol so
// external MCP clients share one gateway with the chat agent.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskpilot/taskpilot/internal/domain/task"
	"github.com/taskpilot/taskpilot/internal/domain/user"
	"github.com/taskpilot/taskpilot/internal/service"
)

// TaskGateway is the slice of the tool gateway the MCP server needs.
type TaskGateway interface {
	AddTask(ctx context.Context, caller string, req task.CreateRequest) *service.ToolResult
	ListTasks(ctx context.Context, caller, status string) *service.ToolResult
	CompleteTask(ctx context.Context, caller, taskID string) *service.ToolResult
	UpdateTask(ctx context.Context, caller, taskID string, req task.UpdateRequest) *service.ToolResult
	DeleteTask(ctx context.Context, caller, taskID string) *service.ToolResult
}

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(token string) (*user.TokenClaims, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
}

// ServerDeps holds the dependencies injected into tool handlers.
type ServerDeps struct {
	Gateway TaskGateway
	Tokens  TokenValidator
}

// Server exposes task tools over streamable HTTP MCP.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
}

// NewServer creates an MCP server with all task tools registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(
			cfg.Name,
			cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCP server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start begins serving MCP over streamable HTTP in a background goroutine.
func (s *Server) Start() error {
	streamable := mcpserver.NewStreamableHTTPServer(
		s.mcpServer,
		mcpserver.WithHTTPContextFunc(propagateCaller),
	)

	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           AuthMiddleware(s.deps.Tokens, streamable),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the MCP HTTP listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
