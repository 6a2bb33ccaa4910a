package cache

import (
	"context"
	"time"
)

// NullCache stands in for a cache when evaluations must not be stored.
// Lookups always miss and writes are dropped.
type NullCache struct {
	// Reason says why caching is off, e.g. "--no-cache". Runners log it.
	Reason string
}

// NewNullCache returns a cache that stores nothing, for the given reason.
func NewNullCache(reason string) *NullCache {
	return &NullCache{Reason: reason}
}

func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
