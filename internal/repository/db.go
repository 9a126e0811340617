package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the querying surface shared by a pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is the subset of pgx.Tx the services drive.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Queries is the PostgreSQL implementation of Querier.
type Queries struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a query layer backed by the given pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{db: pool, pool: pool}
}

// Begin starts a transaction and returns a Querier bound to it. The returned
// Tx must be committed or rolled back by the caller.
func (q *Queries) Begin(ctx context.Context) (Tx, Querier, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tx, &Queries{db: tx, pool: q.pool}, nil
}
