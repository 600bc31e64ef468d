package sqlstore

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// dialect captures the few places where SQLite and Postgres disagree.
type dialect struct {
	name       string
	sqlDriver  string
	migrations string

	// greatest is the two-argument max function.
	greatest string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:       DriverSQLite,
		sqlDriver:  "sqlite",
		migrations: "migrations/sqlite",
		greatest:   "MAX",
	},
	DriverPostgres: {
		name:       DriverPostgres,
		sqlDriver:  "pgx",
		migrations: "migrations/postgres",
		greatest:   "GREATEST",
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("sqlstore: unsupported driver %q", name)
	}
	return d, nil
}

// isUniqueViolation reports whether err came from a unique index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
