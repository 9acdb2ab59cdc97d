package kvstore

import (
	"fmt"
	"time"

	"cloth/config"
	"cloth/migrations"
	"cloth/pkg/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open builds the backend selected by cfg, applies migrations for SQL
// backends, and returns it behind a running Partition.
func Open(cfg *config.Config, log *logger.Logger) (*Partition, error) {
	var backend Store

	switch cfg.Storage.Backend {
	case "memory":
		backend = NewMemoryStore()

	case "postgres":
		db, err := sqlx.Connect("postgres", cfg.Database.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := migrations.RunMigrations(db.DB, migrations.DialectPostgres); err != nil {
			db.Close()
			return nil, err
		}
		log.Infow("Postgres storage ready", "target", cfg.Database.Redacted())
		backend = NewSQLStore(db, cfg.Storage.Partition)

	case "sqlite":
		db, err := OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Infow("SQLite storage ready", "path", cfg.Storage.SQLitePath)
		backend = NewSQLStore(db, cfg.Storage.Partition)

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	p := NewPartition(cfg.Storage.Partition, backend)
	log.Infow("Storage partition started",
		"backend", cfg.Storage.Backend,
		"partition", p.Name(),
	)
	return p, nil
}

// OpenSQLite opens (creating if needed) a migrated SQLite database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: SQLite allows a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	if err := migrations.RunMigrations(db.DB, migrations.DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
