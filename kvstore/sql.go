package kvstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps one partition of entries in the kv_entries table. It works
// with both the postgres and sqlite dialects through sqlx rebinding.
type SQLStore struct {
	db        *sqlx.DB
	partition string
}

// NewSQLStore returns a store scoped to partition. The table must already
// exist (see migrations.RunMigrations).
func NewSQLStore(db *sqlx.DB, partition string) *SQLStore {
	return &SQLStore{db: db, partition: partition}
}

type kvRow struct {
	Key   string `db:"entry_key"`
	Value string `db:"entry_value"`
}

func (s *SQLStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	query := s.db.Rebind(`
		SELECT entry_key, entry_value
		FROM kv_entries
		WHERE partition_name = ? AND substr(entry_key, 1, length(CAST(? AS TEXT))) = CAST(? AS TEXT)
	`)

	var rows []kvRow
	if err := s.db.SelectContext(ctx, &rows, query, s.partition, prefix, prefix); err != nil {
		return nil, storageError("list", prefix, err)
	}

	result := make(map[string][]byte, len(rows))
	for _, r := range rows {
		result[r.Key] = []byte(r.Value)
	}
	return result, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := s.db.Rebind(`SELECT entry_value FROM kv_entries WHERE partition_name = ? AND entry_key = ?`)

	var value string
	err := s.db.GetContext(ctx, &value, query, s.partition, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storageError("get", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	query := s.db.Rebind(`
		INSERT INTO kv_entries (partition_name, entry_key, entry_value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (partition_name, entry_key)
		DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at
	`)

	if _, err := s.db.ExecContext(ctx, query, s.partition, key, string(value)); err != nil {
		return storageError("put", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM kv_entries WHERE partition_name = ? AND entry_key = ?`)

	if _, err := s.db.ExecContext(ctx, query, s.partition, key); err != nil {
		return storageError("delete", key, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
