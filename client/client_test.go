package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversation_id":"c1","response":"Done!","tool_calls":["add_task"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", time.Second)
	resp, err := c.Chat(context.Background(), "add buy milk", "")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.ConversationID != "c1" || resp.Response != "Done!" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestChatErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantKind  Kind
		retryable bool
	}{
		{"validation", http.StatusBadRequest, `{"detail":"message is required","code":"INVALID_REQUEST"}`, KindValidation, false},
		{"auth", http.StatusUnauthorized, `{"detail":"invalid or expired token","code":"UNAUTHORIZED"}`, KindAuth, false},
		{"not found", http.StatusNotFound, `{"detail":"conversation not found","code":"CONVERSATION_NOT_FOUND"}`, KindNotFound, false},
		{"provider down", http.StatusServiceUnavailable, `{"detail":"the assistant is temporarily unavailable, please retry","code":"AI_PROVIDER_UNAVAILABLE"}`, KindServer, true},
		{"internal", http.StatusInternalServerError, `{"detail":"internal server error","code":"INTERNAL_ERROR"}`, KindServer, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "tok", time.Second).Chat(context.Background(), "hi", "")
			var cerr *Error
			if err == nil {
				t.Fatal("expected error")
			}
			var ok bool
			if cerr, ok = err.(*Error); !ok {
				t.Fatalf("error type %T", err)
			}
			if cerr.Kind != tc.wantKind {
				t.Fatalf("kind = %s, want %s", cerr.Kind, tc.wantKind)
			}
			if cerr.Retryable() != tc.retryable {
				t.Fatalf("retryable = %v, want %v", cerr.Retryable(), tc.retryable)
			}
			if cerr.Status != tc.status {
				t.Fatalf("status = %d, want %d", cerr.Status, tc.status)
			}
		})
	}
}

func TestChatConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := New(srv.URL, "tok", time.Second).Chat(context.Background(), "hi", "")
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if cerr.Kind != KindConnectivity {
		t.Fatalf("kind = %s, want connectivity", cerr.Kind)
	}
	if !cerr.Retryable() {
		t.Fatal("connectivity errors must be retryable")
	}
}

func TestChatTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	_, err := New(srv.URL, "tok", 50*time.Millisecond).Chat(context.Background(), "hi", "")
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if cerr.Kind != KindTimeout && cerr.Kind != KindConnectivity {
		t.Fatalf("kind = %s, want timeout or connectivity", cerr.Kind)
	}
	if !cerr.Retryable() {
		t.Fatal("timeouts must be retryable")
	}
}

func TestBackoffSchedule(t *testing.T) {
	b := &Backoff{Base: 100 * time.Millisecond, Max: 2 * time.Second}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		2 * time.Second,
		2 * time.Second,
	}
	for i, w := range want {
		if got := b.NextDelay(); got != w {
			t.Fatalf("delay[%d] = %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if got := b.NextDelay(); got != 100*time.Millisecond {
		t.Fatalf("delay after reset = %v, want 100ms", got)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := &Backoff{}
	if got := b.NextDelay(); got != time.Second {
		t.Fatalf("default base = %v, want 1s", got)
	}
}

func TestBackoffUncappedStaysPositive(t *testing.T) {
	b := &Backoff{Base: time.Second}

	prev := time.Duration(0)
	for i := 0; i < 80; i++ {
		d := b.NextDelay()
		if d <= 0 {
			t.Fatalf("delay[%d] = %v, must be positive", i, d)
		}
		if d < prev {
			t.Fatalf("delay[%d] = %v shrank from %v", i, d, prev)
		}
		prev = d
	}
}
