package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/taskpilot/taskpilot/internal/adapter/otel"
	"github.com/taskpilot/taskpilot/internal/domain/conversation"
)

// HandleChat processes one chat turn for the authenticated user.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[conversation.ChatRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}

	ctx, span := otel.StartTurnSpan(r.Context(), req.ConversationID)
	defer span.End()
	start := time.Now()

	resp, err := h.Chat.Chat(ctx, owner, req)
	if h.Metrics != nil {
		h.Metrics.ChatRequests.Add(ctx, 1)
		h.Metrics.ChatDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			h.Metrics.ChatFailures.Add(ctx, 1)
		} else {
			h.Metrics.ToolCalls.Add(ctx, int64(len(resp.ToolCalls)))
		}
	}
	if err != nil {
		writeDomainError(w, err, "conversation not found", conversation.CodeConversationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListConversationMessages returns the recent messages of the caller's
// conversation in chronological order.
func (h *Handlers) ListConversationMessages(w http.ResponseWriter, r *http.Request) {
	owner, ok := caller(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeAPIError(w, http.StatusBadRequest, "limit must be a positive integer", conversation.CodeInvalidRequest)
			return
		}
		limit = n
	}

	msgs, err := h.Chat.Messages(r.Context(), owner, urlParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err, "conversation not found", conversation.CodeConversationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs, "count": len(msgs)})
}
