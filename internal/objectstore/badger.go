package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	dataPrefix = "obj:data:"
	metaPrefix = "obj:type:"
)

// BadgerStore keeps objects in a shared badger database. Data and content
// type are written in one transaction.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps db. Close does not close db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+key), data); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+key), []byte(contentType))
	})
	if err != nil {
		return fmt.Errorf("store object %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (*Object, error) {
	obj := &Object{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataPrefix + key))
		if err != nil {
			return err
		}
		if obj.Data, err = item.ValueCopy(nil); err != nil {
			return err
		}
		meta, err := txn.Get([]byte(metaPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ct, err := meta.ValueCopy(nil)
		obj.ContentType = string(ct)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load object %s: %w", key, err)
	}
	return obj, nil
}

func (s *BadgerStore) Kind() string { return "badger" }

func (s *BadgerStore) Close() error { return nil }
