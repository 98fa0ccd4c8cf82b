// Package kv defines the key-value contract the rate limiter keeps its
// buckets in, together with the redis, badger and in-memory backends.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a key-value store with per-key expiry.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key for ttl. A ttl <= 0 keeps the key forever.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Kind names the backend for status reporting.
	Kind() string
	Close() error
}
