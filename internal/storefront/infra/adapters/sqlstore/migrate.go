package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending migrations for driver on its own connection,
// so the caller's pool settings are unaffected. It is idempotent.
func Migrate(driver, dsn string) error {
	d, err := lookupDialect(driver)
	if err != nil {
		return err
	}

	db, err := sql.Open(d.sqlDriver, dsnFor(d, dsn))
	if err != nil {
		return fmt.Errorf("sqlstore: open for migrate: %w", err)
	}

	var target database.Driver
	switch d.name {
	case DriverSQLite:
		target, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case DriverPostgres:
		target, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlstore: migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, d.migrations)
	if err != nil {
		_ = target.Close()
		return fmt.Errorf("sqlstore: migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.name, target)
	if err != nil {
		_ = target.Close()
		return fmt.Errorf("sqlstore: migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: migrate up: %w", err)
	}
	return nil
}
