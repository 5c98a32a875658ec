package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/taskpilot/taskpilot/internal/adapter/llm"
	"github.com/taskpilot/taskpilot/internal/adapter/otel"
	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/domain/task"
)

//go:embed templates/chat_system.tmpl
var systemPrompt string

// maxTurnsReply is returned when the reasoning loop exhausts its turn
// budget without producing a final answer. Work done by earlier tool
// calls in the loop is kept.
const maxTurnsReply = "I wasn't able to finish working on that request. Some steps may have been applied; ask me to list your tasks to see the current state."

// CompletionClient is the slice of the reasoning provider the agent needs.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// AgentResult is the outcome of one reasoning run.
type AgentResult struct {
	Reply     string
	ToolCalls []string
}

// Agent drives the tool-calling reasoning loop for a single chat turn.
// It holds no per-conversation state; every run starts from the
// persisted history it is handed.
type Agent struct {
	completer CompletionClient
	gateway   *ToolGateway
	maxTurns  int
}

// NewAgent creates an agent with the given turn budget.
func NewAgent(completer CompletionClient, gateway *ToolGateway, maxTurns int) *Agent {
	return &Agent{completer: completer, gateway: gateway, maxTurns: maxTurns}
}

// Run executes the reasoning loop for caller over the given history. The
// last history entry is the user message being answered. Tool failures
// are fed back to the model as observations; only provider failures
// abort the run.
func (a *Agent) Run(ctx context.Context, caller string, history []conversation.Message) (*AgentResult, error) {
	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}

	tools := toolDefinitions()
	var called []string

	for turn := 0; turn < a.maxTurns; turn++ {
		resp, err := a.completer.ChatCompletion(ctx, llm.ChatRequest{
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}

		if len(resp.ToolCalls) == 0 {
			return &AgentResult{Reply: resp.Content, ToolCalls: called}, nil
		}

		messages = append(messages, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			called = append(called, tc.Function.Name)
			observation := a.dispatch(ctx, caller, tc)
			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				Content:    observation,
				ToolCallID: tc.ID,
			})
		}
	}

	slog.Warn("reasoning loop exhausted turn budget", "caller", caller, "turns", a.maxTurns)
	return &AgentResult{Reply: maxTurnsReply, ToolCalls: called}, nil
}

// dispatch routes one tool call to the gateway and renders the result as
// an observation string for the model.
func (a *Agent) dispatch(ctx context.Context, caller string, tc llm.ToolCall) string {
	ctx, span := otel.StartToolCallSpan(ctx, tc.Function.Name)
	defer span.End()

	args, err := tc.ArgumentsMap()
	if err != nil {
		return renderObservation(&ToolResult{
			Status:  StatusValidationError,
			Message: fmt.Sprintf("malformed tool arguments: %v", err),
		})
	}

	var res *ToolResult
	switch tc.Function.Name {
	case ToolAddTask:
		res = a.gateway.AddTask(ctx, caller, task.CreateRequest{
			Title:       stringArg(args, "title"),
			Description: stringArg(args, "description"),
		})
	case ToolListTasks:
		res = a.gateway.ListTasks(ctx, caller, stringArg(args, "status"))
	case ToolCompleteTask:
		res = a.gateway.CompleteTask(ctx, caller, stringArg(args, "task_id"))
	case ToolUpdateTask:
		res = a.gateway.UpdateTask(ctx, caller, stringArg(args, "task_id"), task.UpdateRequest{
			Title:       optionalStringArg(args, "title"),
			Description: optionalStringArg(args, "description"),
		})
	case ToolDeleteTask:
		res = a.gateway.DeleteTask(ctx, caller, stringArg(args, "task_id"))
	default:
		res = &ToolResult{
			Status:  StatusValidationError,
			Message: fmt.Sprintf("unknown tool %q", tc.Function.Name),
		}
	}

	return renderObservation(res)
}

func renderObservation(res *ToolResult) string {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf(`{"status":%q,"message":"failed to encode tool result"}`, StatusServerError)
	}
	return string(data)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func optionalStringArg(args map[string]any, key string) *string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

// toolDefinitions builds the function schemas advertised to the provider.
// The caller identity is never part of a schema; it is injected from the
// authenticated request on dispatch.
func toolDefinitions() []llm.Tool {
	return []llm.Tool{
		llm.NewFunctionTool(ToolAddTask, "Create a new task for the user.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short task title, at most 200 characters.",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Optional longer description, at most 1000 characters.",
				},
			},
			"required": []string{"title"},
		}),
		llm.NewFunctionTool(ToolListTasks, "List the user's tasks, newest first.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{"all", "pending", "completed"},
					"description": "Filter by completion state. Defaults to all.",
				},
			},
		}),
		llm.NewFunctionTool(ToolCompleteTask, "Toggle a task between completed and pending.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "The id of the task to toggle.",
				},
			},
			"required": []string{"task_id"},
		}),
		llm.NewFunctionTool(ToolUpdateTask, "Change a task's title and/or description.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "The id of the task to update.",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "New title, at most 200 characters.",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "New description, at most 1000 characters.",
				},
			},
			"required": []string{"task_id"},
		}),
		llm.NewFunctionTool(ToolDeleteTask, "Permanently delete a task. This cannot be undone.", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "The id of the task to delete.",
				},
			},
			"required": []string{"task_id"},
		}),
	}
}
