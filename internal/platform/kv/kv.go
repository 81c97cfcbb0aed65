// Package kv defines the key-value contract used for job state and result
// caching: per-key TTL and read-after-write consistency on a single key.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is missing or has expired.
var ErrNotFound = errors.New("kv: key not found")

// UpdateFunc receives the current value (nil when absent) and returns the
// value to store. Returning an error aborts the update without writing.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Store is implemented by the Redis service and by Memory.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Update performs an atomic read-modify-write of one key, refreshing its TTL.
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error
}
