package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []string
	fail error
}

func (h *recordingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.ID)
	return h.fail
}

func newConsumer(t *testing.T, handler MessageHandler) (*Consumer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewConsumer(client, "mail:outbox", "mailers", "test", time.Minute, zerolog.Nop(), handler)
	c.block = 10 * time.Millisecond
	return c, client
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	c, _ := newConsumer(t, &recordingHandler{})
	ctx := context.Background()

	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("first EnsureGroup() error: %v", err)
	}
	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("second EnsureGroup() error: %v", err)
	}
}

func TestReadAcksHandledMessages(t *testing.T) {
	handler := &recordingHandler{}
	c, client := newConsumer(t, handler)
	ctx := context.Background()

	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"type": "password_reset"}}).Err(); err != nil {
			t.Fatalf("XAdd() error: %v", err)
		}
	}

	if err := c.read(ctx); err != nil {
		t.Fatalf("read() error: %v", err)
	}
	if len(handler.seen) != 3 {
		t.Fatalf("handled %d messages, want 3", len(handler.seen))
	}

	pending, err := client.XPending(ctx, "mail:outbox", "mailers").Result()
	if err != nil {
		t.Fatalf("XPending() error: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("pending = %d, want 0", pending.Count)
	}
}

func TestReadLeavesFailedMessagesPending(t *testing.T) {
	handler := &recordingHandler{fail: errors.New("smtp unavailable")}
	c, client := newConsumer(t, handler)
	ctx := context.Background()

	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup() error: %v", err)
	}
	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"type": "password_reset"}}).Err(); err != nil {
		t.Fatalf("XAdd() error: %v", err)
	}

	if err := c.read(ctx); err != nil {
		t.Fatalf("read() error: %v", err)
	}

	pending, err := client.XPending(ctx, "mail:outbox", "mailers").Result()
	if err != nil {
		t.Fatalf("XPending() error: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("pending = %d, want 1", pending.Count)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	c, _ := newConsumer(t, &recordingHandler{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	pending, err := client.XPending(context.Background(), "mail:outbox", "mailers").Result()
	if err != nil {
		t.Fatalf("XPending() error: %v", err)
	}
	return pending.Count
}

func TestPermanentFailureIsDeadLettered(t *testing.T) {
	handler := &recordingHandler{fail: Permanent(errors.New("field user_id: invalid syntax"))}
	c, client := newConsumer(t, handler)
	ctx := context.Background()

	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup() error: %v", err)
	}
	id, err := client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"type": "password_reset", "user_id": "x"}}).Result()
	if err != nil {
		t.Fatalf("XAdd() error: %v", err)
	}

	if err := c.read(ctx); err != nil {
		t.Fatalf("read() error: %v", err)
	}
	if got := pendingCount(t, client); got != 0 {
		t.Fatalf("pending = %d, want 0", got)
	}

	dead, err := client.XRange(ctx, "mail:outbox:dead", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange() error: %v", err)
	}
	if len(dead) != 1 {
		t.Fatalf("dead-letter entries = %d, want 1", len(dead))
	}
	if dead[0].Values["source_id"] != id || dead[0].Values["type"] != "password_reset" {
		t.Fatalf("unexpected dead-letter entry: %v", dead[0].Values)
	}
}

func TestClaimGivesUpAfterMaxDeliveries(t *testing.T) {
	handler := &recordingHandler{fail: errors.New("smtp unavailable")}
	c, client := newConsumer(t, handler)
	c.claimInterval = 0
	c.maxDeliveries = 2
	ctx := context.Background()

	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup() error: %v", err)
	}
	if err := client.XAdd(ctx, &redis.XAddArgs{Stream: "mail:outbox", Values: map[string]any{"type": "password_reset"}}).Err(); err != nil {
		t.Fatalf("XAdd() error: %v", err)
	}

	// first delivery
	if err := c.read(ctx); err != nil {
		t.Fatalf("read() error: %v", err)
	}
	// second delivery, still below the limit when listed
	if err := c.claimStalled(ctx); err != nil {
		t.Fatalf("claimStalled() error: %v", err)
	}
	if got := pendingCount(t, client); got != 1 {
		t.Fatalf("pending after retry = %d, want 1", got)
	}
	if len(handler.seen) != 2 {
		t.Fatalf("handled %d times, want 2", len(handler.seen))
	}

	if err := c.claimStalled(ctx); err != nil {
		t.Fatalf("claimStalled() error: %v", err)
	}
	if got := pendingCount(t, client); got != 0 {
		t.Fatalf("pending after giving up = %d, want 0", got)
	}
	if len(handler.seen) != 2 {
		t.Fatalf("handler called after giving up: %d calls", len(handler.seen))
	}
	n, err := client.XLen(ctx, "mail:outbox:dead").Result()
	if err != nil {
		t.Fatalf("XLen() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("dead-letter length = %d, want 1", n)
	}
}
