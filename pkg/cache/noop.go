package cache

import (
	"context"
	"fmt"
	"time"
)

// noopCache satisfies Cache when no response cache is configured. Every
// read misses and writes are discarded, so callers never branch on cache
// availability.
type noopCache struct{}

// NewNoop returns a cache that stores nothing.
func NewNoop() Cache { return noopCache{} }

func (noopCache) Get(_ context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("key not found: %s", key)
}

func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, string) error { return nil }
