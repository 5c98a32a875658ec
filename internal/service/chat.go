package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
	"github.com/taskpilot/taskpilot/internal/port/cache"
	"github.com/taskpilot/taskpilot/internal/port/database"
	"github.com/taskpilot/taskpilot/internal/port/messagequeue"
)

// Broadcaster pushes a turn event to connected realtime clients.
type Broadcaster interface {
	Broadcast(data []byte)
}

// ChatOptions carries the tunables of the chat pipeline.
type ChatOptions struct {
	HistoryLimit   int
	ProviderBudget time.Duration
	OwnershipTTL   time.Duration
}

// ChatService coordinates one chat turn: conversation resolution, durable
// persistence of both sides of the exchange, and the reasoning run in
// between. Queue and hub are optional; a nil value disables that output.
type ChatService struct {
	db    database.Store
	agent *Agent
	cache cache.Cache
	queue messagequeue.Queue
	hub   Broadcaster
	opts  ChatOptions
}

// NewChatService wires the chat pipeline.
func NewChatService(db database.Store, agent *Agent, c cache.Cache, q messagequeue.Queue, hub Broadcaster, opts ChatOptions) *ChatService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = conversation.HistoryLimit
	}
	return &ChatService{db: db, agent: agent, cache: c, queue: q, hub: hub, opts: opts}
}

// Chat handles one user message end to end. The user message is persisted
// before the reasoning run starts, so a provider failure never loses it.
func (s *ChatService) Chat(ctx context.Context, caller string, req conversation.ChatRequest) (*conversation.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(ctx, caller, req.ConversationID)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.db.AppendMessage(ctx, conv.ID, caller, conversation.RoleUser, req.Message)
	if err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	s.emitTurn(ctx, messagequeue.SubjectTurnUser, messagequeue.TurnEventPayload{
		ConversationID: conv.ID,
		MessageID:      userMsg.ID,
		Role:           conversation.RoleUser,
	})

	history, err := s.db.ListRecentMessages(ctx, conv.ID, caller, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	runCtx := ctx
	if s.opts.ProviderBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.ProviderBudget)
		defer cancel()
	}

	result, err := s.agent.Run(runCtx, caller, history)
	if err != nil {
		// The user message stays persisted; the client may retry.
		return nil, err
	}

	assistantMsg, err := s.db.AppendMessage(ctx, conv.ID, caller, conversation.RoleAssistant, result.Reply)
	if err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	s.emitTurn(ctx, messagequeue.SubjectTurnAssistant, messagequeue.TurnEventPayload{
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
		Role:           conversation.RoleAssistant,
		ToolCalls:      result.ToolCalls,
	})

	return &conversation.ChatResponse{
		ConversationID: conv.ID,
		Response:       result.Reply,
		ToolCalls:      result.ToolCalls,
	}, nil
}

// Messages returns up to limit most recent messages of the caller's
// conversation in chronological order.
func (s *ChatService) Messages(ctx context.Context, caller, conversationID string, limit int) ([]conversation.Message, error) {
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	return s.db.ListRecentMessages(ctx, conversationID, caller, limit)
}

// resolveConversation returns the caller's conversation, creating one when
// no id was supplied. Ownership of known conversations is answered from
// the cache when possible; the owner of a conversation never changes, so
// a cached entry cannot go stale.
func (s *ChatService) resolveConversation(ctx context.Context, caller, id string) (*conversation.Conversation, error) {
	if id == "" {
		conv, err := s.db.CreateConversation(ctx, caller)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		s.cacheOwner(ctx, conv.ID, caller)
		return conv, nil
	}

	if s.cache != nil {
		if owner, ok, err := s.cache.Get(ctx, ownerKey(id)); err == nil && ok && string(owner) == caller {
			return &conversation.Conversation{ID: id, Owner: caller}, nil
		}
	}

	conv, err := s.db.GetConversation(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	s.cacheOwner(ctx, conv.ID, caller)
	return conv, nil
}

func (s *ChatService) cacheOwner(ctx context.Context, conversationID, owner string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, ownerKey(conversationID), []byte(owner), s.opts.OwnershipTTL); err != nil {
		slog.Debug("ownership cache set failed", "error", err)
	}
}

// emitTurn best-effort publishes a turn event to the queue and the
// realtime hub. Delivery failures are logged, never surfaced.
func (s *ChatService) emitTurn(ctx context.Context, subject string, payload messagequeue.TurnEventPayload) {
	if s.queue == nil && s.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("encode turn event", "error", err)
		return
	}
	if s.queue != nil {
		if err := s.queue.Publish(ctx, subject, data); err != nil {
			slog.Warn("publish turn event", "subject", subject, "error", err)
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(data)
	}
}

func ownerKey(conversationID string) string {
	return "conv-owner:" + conversationID
}
