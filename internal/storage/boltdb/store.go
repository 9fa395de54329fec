// Package boltdb implements storage.Store on a bbolt database file.
package boltdb

import (
	"context"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/LexForumLab/lexforum/client/internal/storage"
)

var bucketRecords = []byte("records")

// ErrEmptyPath indicates no database path was supplied.
var ErrEmptyPath = errors.New("boltdb: database path must not be empty")

// Store persists key-value records in a single bbolt bucket.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file and prepares its bucket.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltdb: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(bucketRecords)
		return bucketErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltdb: initialize bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrEmptyKey
	}
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		stored := tx.Bucket(bucketRecords).Get([]byte(key))
		if stored == nil {
			return storage.ErrKeyNotFound
		}
		value = make([]byte, len(stored))
		copy(value, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set implements storage.Store.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).Put([]byte(key), value)
	})
}

// Remove implements storage.Store.
func (s *Store) Remove(_ context.Context, key string) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(key))
	})
}

// Keys implements storage.Store.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
