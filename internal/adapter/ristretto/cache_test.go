package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestCacheSetGetDelete(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "conv-owner:c1", []byte("alice"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Wait()

	val, ok, err := c.Get(ctx, "conv-owner:c1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(val) != "alice" {
		t.Fatalf("value = %q", val)
	}

	if err := c.Delete(ctx, "conv-owner:c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	c.Wait()

	if _, ok, _ := c.Get(ctx, "conv-owner:c1"); ok {
		t.Fatal("value survived delete")
	}
}

func TestCacheMiss(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, ok, err := c.Get(context.Background(), "absent"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Wait()
	time.Sleep(60 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("value survived its TTL")
	}
}
