// Package kvstore provides the ordered, prefix-scannable key/value namespace
// that flags are persisted in, together with the single-writer partition that
// serializes access to it.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrStorage marks every failure that originates in a storage backend.
var ErrStorage = errors.New("storage failure")

// ErrPartitionClosed is returned for operations submitted after Close.
var ErrPartitionClosed = fmt.Errorf("%w: partition closed", ErrStorage)

// Store is the key/value contract every backend satisfies. Operations are
// atomic per key; nothing spans multiple keys.
type Store interface {
	// List returns every entry whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Executor runs fn with exclusive access to a Store.
type Executor interface {
	Exec(ctx context.Context, fn func(Store) error) error
}

// SerializedStore is a Store whose operations can also be grouped into
// exclusive sections.
type SerializedStore interface {
	Store
	Executor
}

func storageError(op, key string, err error) error {
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s %q: %w", ErrStorage, op, key, err)
}

// Inline wraps a Store whose caller already holds exclusive access, so that
// Exec simply runs the function against it.
func Inline(s Store) SerializedStore {
	return inline{Store: s}
}

type inline struct {
	Store
}

func (i inline) Exec(_ context.Context, fn func(Store) error) error {
	return fn(i.Store)
}
