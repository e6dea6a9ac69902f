// Package store persists platform content and conversation state in Postgres.
// All writes are keyed upserts or insert-if-absent so duplicate webhook
// deliveries converge without locking.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// PgxPool is the subset of pgxpool.Pool used by the store.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres-backed data store for the response pipeline.
type Store struct {
	pool PgxPool
}

// New creates a store over the given pool.
func New(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}
