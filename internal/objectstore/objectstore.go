// Package objectstore persists uploaded captures as opaque blobs.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("objectstore: object not found")

// Object is a stored blob and its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is the upload persistence contract.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Kind() string
	Close() error
}
