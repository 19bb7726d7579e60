// Package store is the typed facade over the relational metadata store. All
// reads and mutations of applications, uploads, devices and users go through
// it; multi-row mutations run inside a single transaction.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so every query helper
// can run standalone or inside a transaction.
type Querier interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Store wraps a sqlx database handle.
type Store struct {
	db *sqlx.DB

	// Clock supplies row timestamps. Replaced with a mock in tests.
	Clock clock.Clock
}

// Open connects to the sqlite database at the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	// sqlite allows one writer at a time; a single pooled connection avoids
	// SQLITE_BUSY under concurrent mutation.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errdefs.NewE(errdefs.ErrUnavailable, err)
		}
	}
	return &Store{db: db, Clock: clock.New()}, nil
}

// Migrate applies the schema. Safe to call on every boot.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for query helpers.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Transact runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) Transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errdefs.NewE(errdefs.ErrUnavailable, err)
	}
	return nil
}

// wrapQueryErr maps driver-level errors into the shared taxonomy.
func wrapQueryErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errdefs.Newf(errdefs.ErrNotFound, format, args...)
	}
	return errdefs.NewE(errdefs.ErrUnavailable, err)
}
