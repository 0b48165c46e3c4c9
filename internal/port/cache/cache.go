// Package cache defines the port for snapshot caching. The registry
// loader is its only consumer, so the interface is read/write only;
// stale snapshots age out via TTL rather than explicit invalidation.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte snapshots under string keys.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value that expires after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
