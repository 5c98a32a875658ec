// Package cache defines the cache port. Its one consumer is the chat
// pipeline's conversation-ownership lookup.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-valued key-value store with per-entry TTL. A miss is
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
