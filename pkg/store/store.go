package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock's mock pool,
// letting Store methods run either directly against the pool or inside a
// transaction without duplicating SQL (grounded on pgmemory's Querier
// abstraction over pgx).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxQuerier is a Querier that can also begin nested transactions, used by
// BatchUpsertChat's per-row SAVEPOINT handling. *pgxpool.Pool, pgx.Tx and
// pgxmock's mock pool all satisfy it; batches are only ever driven from the
// top-level pool.
type TxQuerier interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements the Hermes persistence contract (spec §4.1) over a pgx
// connection pool. All methods accept a context and are safe for
// concurrent use by the Ingestor, Stats Poller and ETL jobs. db is held as
// the TxQuerier interface rather than a concrete *pgxpool.Pool so unit
// tests can inject a pgxmock pool in its place.
type Store struct {
	db TxQuerier
}

// New constructs a Store over an already-migrated pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// NewFromClient constructs a Store from a Client returned by NewClient.
func NewFromClient(c *Client) *Store {
	return &Store{db: c.Pool}
}

// NewWithQuerier constructs a Store over an arbitrary TxQuerier, used by
// tests to inject a pgxmock pool.
func NewWithQuerier(db TxQuerier) *Store {
	return &Store{db: db}
}
