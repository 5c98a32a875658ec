package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/taskpilot/taskpilot/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

// uniqueSubject returns a per-test subject under the "chat." prefix,
// which the TASKPILOT stream captures (chat.>).
func uniqueSubject(t *testing.T) string {
	t.Helper()
	return "chat.test." + t.Name()
}

func TestQueuePublishSubscribe(t *testing.T) {
	q := testConnect(t)
	subject := uniqueSubject(t)

	want := messagequeue.TurnEventPayload{
		ConversationID: "c1",
		MessageID:      "m1",
		Role:           "assistant",
		ToolCalls:      []string{"add_task"},
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var mu sync.Mutex
	var got []messagequeue.TurnEventPayload
	received := make(chan struct{}, 1)

	stop, err := q.Subscribe(context.Background(), subject, func(_ string, data []byte) error {
		var p messagequeue.TurnEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		received <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(context.Background(), subject, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("received %d messages, want 1", len(got))
	}
	if got[0].ConversationID != "c1" || got[0].Role != "assistant" {
		t.Fatalf("payload = %+v", got[0])
	}
}

func TestQueuePublishCancelledContext(t *testing.T) {
	q := testConnect(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Publish(ctx, uniqueSubject(t), []byte(`{}`)); err == nil {
		t.Fatal("expected error publishing with cancelled context")
	}
}
