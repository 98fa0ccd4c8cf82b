package objectstore

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryStore holds objects in process memory. Intended for development.
type MemoryStore struct {
	objects *xsync.Map[string, Object]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: xsync.NewMap[string, Object]()}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects.Store(key, Object{Data: buf, ContentType: contentType})
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	obj, ok := s.objects.Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int { return s.objects.Size() }

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Close() error {
	s.objects.Clear()
	return nil
}
