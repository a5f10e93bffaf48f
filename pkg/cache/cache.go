package cache

import (
	"context"
	"time"
)

// Cache is the response-cache abstraction used by the API layer to memoize
// serialized analysis results. Implementations must be safe for concurrent
// use.
type Cache interface {
	// Get returns the stored bytes or an error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A non-positive ttl uses the default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Delete removes key; absent keys are not an error.
	Delete(ctx context.Context, key string) error
}
