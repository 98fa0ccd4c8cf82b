package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter"
)

// foreverTTL stands in for "no expiry" in the variable-TTL cache.
const foreverTTL = 100 * 365 * 24 * time.Hour

// MemoryStore is a process-local store for development and tests. Buckets
// kept here are not shared between gateway replicas.
type MemoryStore struct {
	cache otter.CacheWithVariableTTL[string, []byte]
}

// NewMemoryStore creates a store bounded to capacity keys.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = 10_000
	}
	cache, err := otter.MustBuilder[string, []byte](capacity).
		Cost(func(_ string, _ []byte) uint32 { return 1 }).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build memory store: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = foreverTTL
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.cache.Set(key, stored, ttl)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Close() error {
	s.cache.Close()
	return nil
}
