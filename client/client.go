// Package client provides a typed HTTP client for the chat API with
// error classification and retry backoff for interactive callers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/taskpilot/taskpilot/internal/domain/conversation"
)

// Kind classifies a failed request so callers can choose between
// retrying, re-authenticating, and fixing their input.
type Kind string

const (
	KindConnectivity Kind = "connectivity"
	KindTimeout      Kind = "timeout"
	KindAuth         Kind = "auth"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
)

// Error is a classified request failure.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Code   string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the failure is worth retrying. Validation,
// auth, and not-found failures never resolve on their own.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindConnectivity, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// Client talks to the chat API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New creates a client for the given API base URL and access token.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Chat sends one chat message. A non-nil error is always a *Error.
func (c *Client) Chat(ctx context.Context, message, conversationID string) (*conversation.ChatResponse, error) {
	body, err := json.Marshal(conversation.ChatRequest{
		Message:        message,
		ConversationID: conversationID,
	})
	if err != nil {
		return nil, &Error{Kind: KindValidation, cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindValidation, cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var out conversation.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode, cause: err}
	}
	return &out, nil
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, cause: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, cause: err}
	}
	return &Error{Kind: KindConnectivity, cause: err}
}

func classifyStatus(resp *http.Response) *Error {
	var apiErr conversation.APIError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	e := &Error{Status: resp.StatusCode, Detail: apiErr.Detail, Code: apiErr.Code}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Kind = KindAuth
	case resp.StatusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
	}
	return e
}
