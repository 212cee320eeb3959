package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("CACHE_MISS")

// Store is a byte-oriented key/value store with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Sweep removes expired entries and reports how many were removed.
	// Stores with native expiry return 0.
	Sweep(ctx context.Context) (int, error)
	Close() error
}
