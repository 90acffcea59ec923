package cache

import (
	"context"
	"time"
)

// Cache is a key/value store with per-entry expiry. Implementations must be safe
// for concurrent use; concurrent writers to one key resolve as last writer wins.
type Cache interface {
	// Get returns the payload stored under key. found is false on a miss or
	// an expired entry.
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Set stores payload under key for ttl.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
