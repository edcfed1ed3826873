// Package sqlstore implements storage.Storage on top of database/sql,
// using sqlx for row mapping. The same queries serve SQLite (driver
// "sqlite3") and Postgres (driver "pgx"): they are written with ?
// placeholders and rebound for the active driver.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aanand-mishra/student-tracker/internal/config"

	// Side-effect imports register the "pgx" and "sqlite3" drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQL implementation of storage.Storage. The embedded pool
// is safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// Open connects to the configured database, waits for it to answer, and
// creates the tables if they do not exist yet.
func Open(ctx context.Context, cfg config.Storage) (*Store, error) {
	dsn := cfg.DSN
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Open: open db: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// One connection serialises writers and keeps :memory: databases
		// alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)
	}

	if err := ping(ctx, db, cfg.PingAttempts); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore.Open: %w", err)
	}

	if err := createSchema(ctx, db, cfg.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore.Open: %w", err)
	}

	return &Store{db: db}, nil
}

// sqliteDSN turns on foreign-key enforcement (needed for the cascades)
// and a busy timeout for every connection the pool opens.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_foreign_keys=") && !strings.Contains(dsn, "_fk=") {
		dsn += sep + "_foreign_keys=on"
		sep = "&"
	}
	if !strings.Contains(dsn, "_busy_timeout=") {
		dsn += sep + "_busy_timeout=5000"
	}
	return dsn
}

// ping waits for the database to be ready, sleeping 100ms longer between
// each attempt.
func ping(ctx context.Context, db *sqlx.DB, maxAttempts int) error {
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempts == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("db ping: %w", ctx.Err())
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("db ping timeout: %w", err)
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
