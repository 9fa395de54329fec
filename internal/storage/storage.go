// Package storage provides the key-value persistence used for drafts and
// other small client-side records. Two implementations exist: an in-memory
// store for tests and a bbolt-backed store for the real client.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound indicates the key has no stored value.
	ErrKeyNotFound = errors.New("storage: key not found")
	// ErrStoreClosed indicates the store was closed before the call.
	ErrStoreClosed = errors.New("storage: store is closed")
	// ErrEmptyKey indicates a blank key was supplied.
	ErrEmptyKey = errors.New("storage: key must not be empty")
)

// Store is a minimal key-value surface. Values are opaque byte slices;
// callers own serialization.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes the value under key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key string) error
	// Keys returns every stored key, in no particular order.
	Keys(ctx context.Context) ([]string, error)
	// Close releases the underlying resources.
	Close() error
}
