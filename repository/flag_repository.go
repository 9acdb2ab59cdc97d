package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloth/entity"
	"cloth/kvstore"
)

// FlagKeyPrefix namespaces flag records in the key/value store.
const FlagKeyPrefix = "flag:"

var (
	ErrFlagNotFound = errors.New("flag not found")

	// ErrCorruptRecord is returned when a stored payload cannot be decoded.
	// It is a storage failure, not a domain error.
	ErrCorruptRecord = fmt.Errorf("%w: corrupt record", kvstore.ErrStorage)
)

// FlagRepository maps flags onto the flag: namespace of a key/value store
type FlagRepository interface {
	// List returns every stored flag in store order.
	List(ctx context.Context) ([]*entity.Flag, error)
	// Get returns ErrFlagNotFound when id is absent.
	Get(ctx context.Context, id string) (*entity.Flag, error)
	// Put creates or overwrites the flag stored under id.
	Put(ctx context.Context, id string, flag *entity.Flag) error
	// Delete removes id; absent ids are ignored.
	Delete(ctx context.Context, id string) error
	// Atomically runs fn with a repository bound to one exclusive section of
	// the underlying partition.
	Atomically(ctx context.Context, fn func(FlagRepository) error) error
}

type kvFlagRepository struct {
	store kvstore.SerializedStore
}

func NewFlagRepository(store kvstore.SerializedStore) FlagRepository {
	return &kvFlagRepository{store: store}
}

func flagKey(id string) string {
	return FlagKeyPrefix + id
}

func (r *kvFlagRepository) List(ctx context.Context) ([]*entity.Flag, error) {
	entries, err := r.store.List(ctx, FlagKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}

	flags := make([]*entity.Flag, 0, len(entries))
	for key, raw := range entries {
		flag, err := decodeFlag(key, raw)
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, nil
}

func (r *kvFlagRepository) Get(ctx context.Context, id string) (*entity.Flag, error) {
	key := flagKey(id)
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get flag by ID: %w", err)
	}
	if !ok {
		return nil, ErrFlagNotFound
	}
	return decodeFlag(key, raw)
}

func (r *kvFlagRepository) Put(ctx context.Context, id string, flag *entity.Flag) error {
	raw, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("failed to encode flag %s: %w", id, err)
	}
	if err := r.store.Put(ctx, flagKey(id), raw); err != nil {
		return fmt.Errorf("failed to put flag: %w", err)
	}
	return nil
}

func (r *kvFlagRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, flagKey(id)); err != nil {
		return fmt.Errorf("failed to delete flag: %w", err)
	}
	return nil
}

func (r *kvFlagRepository) Atomically(ctx context.Context, fn func(FlagRepository) error) error {
	return r.store.Exec(ctx, func(s kvstore.Store) error {
		return fn(&kvFlagRepository{store: kvstore.Inline(s)})
	})
}

func decodeFlag(key string, raw []byte) (*entity.Flag, error) {
	var flag entity.Flag
	if err := json.Unmarshal(raw, &flag); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptRecord, key, err)
	}
	if flag.ID == "" {
		return nil, fmt.Errorf("%w: %s: missing id", ErrCorruptRecord, key)
	}
	return &flag, nil
}
