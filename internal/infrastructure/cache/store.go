// Package cache provides the key/value stores behind the invoice read cache.
package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented cache with per-entry expiry.
// A missing or expired key is reported by found == false, not an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
