package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// RunMigrations applies every pending migration for dialect to db. The handle
// stays open and usable afterwards.
func RunMigrations(db *sql.DB, dialect string) error {
	src, err := iofs.New(files, dialect)
	if err != nil {
		return fmt.Errorf("failed to load %s migrations: %w", dialect, err)
	}
	defer src.Close()

	var (
		driver database.Driver
		conn   *sql.Conn
	)
	switch dialect {
	case DialectPostgres:
		// A dedicated connection keeps the advisory lock and lets the pool
		// survive the driver being closed.
		conn, err = db.Conn(context.Background())
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		defer conn.Close()
		driver, err = postgres.WithConnection(context.Background(), conn, &postgres.Config{})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
