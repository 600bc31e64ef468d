// Package sqlstore implements the storefront repositories on top of sqlx.
//
// Two dialects share the same queries: SQLite through the pure-Go
// modernc.org/sqlite driver (the default, no CGO) and Postgres through the
// pgx stdlib driver. Queries are written with ? placeholders and rebound
// per driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
}

// Store is the SQL implementation of ports.Store.
type Store struct {
	db      *sqlx.DB
	q       querier
	dialect dialect
	inTx    bool
}

var _ ports.Store = (*Store)(nil)

// Open connects to the database and applies pending migrations.
//
//	store, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, "./data/storefront.db")
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}

	if err := Migrate(driver, dsn); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(d.sqlDriver, dsnFor(d, dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}

	if d.name == DriverSQLite {
		// SQLite performs best with a single writer connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}

	return &Store{db: db, q: db, dialect: d}, nil
}

// dsnFor turns a bare SQLite path into a DSN with WAL enabled, foreign keys
// enforced and a busy timeout instead of immediate lock errors.
func dsnFor(d dialect, dsn string) string {
	if d.name != DriverSQLite || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", dsn)
}

// Close releases the connection pool. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the dialect name the store was opened with.
func (s *Store) Driver() string { return s.dialect.name }

func (s *Store) Products() ports.ProductRepository           { return &productRepository{s} }
func (s *Store) Orders() ports.OrderRepository               { return &orderRepository{s} }
func (s *Store) Carts() ports.CartRepository                 { return &cartRepository{s} }
func (s *Store) Notifications() ports.NotificationRepository { return &notificationRepository{s} }
func (s *Store) History() ports.HistoryRepository            { return &historyRepository{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx ports.Store) error) error {
	return s.withTx(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) withTx(ctx context.Context, fn func(tx *Store) error) (txErr error) {
	// Already inside a transaction: join it.
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(&Store{db: s.db, q: tx, dialect: s.dialect, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

func (s *Store) rebind(query string) string {
	return s.q.Rebind(query)
}

// in expands a single IN (?) list and rebinds for the driver.
func (s *Store) in(query string, args ...any) (string, []any, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("sqlx.In: %w", err)
	}
	return s.rebind(q), expanded, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("RowsAffected: %w", err)
	}
	return n, nil
}
