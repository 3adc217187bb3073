// Package store provides the typed PostgreSQL persistence layer for Hermes
// (spec §4.1, component C1): chat messages, stats snapshots, stream
// metadata, dictionary tables and the ETL execution log.
package store

import (
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"context"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx driver for database/sql (migrations only)

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps a pgx connection pool used for all Store operations.
// Migrations run once at construction time via a throwaway database/sql
// connection (golang-migrate requires one) separate from the pgxpool
// used for every subsequent query.
type Client struct {
	Pool *pgxpool.Pool
}

// NewClient opens a pgx pool against databaseURL, applies pending embedded
// migrations, and returns a ready-to-use Client.
func NewClient(ctx context.Context, databaseURL string) (*Client, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Client{Pool: pool}, nil
}

// NewClientFromPool wraps an existing pool without running migrations.
// It takes a real *pgxpool.Pool; tests inject a pgxmock pool through
// NewWithQuerier instead.
func NewClientFromPool(pool *pgxpool.Pool) *Client {
	return &Client{Pool: pool}
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.Pool.Close()
}

// HealthStatus reports connectivity and pool statistics, used by
// operator tooling to verify a deployment before wiring traffic to it.
type HealthStatus struct {
	Status          string
	ResponseTime    time.Duration
	TotalConns      int32
	IdleConns       int32
	AcquiredConns   int32
	MaxConns        int32
	AcquireCount    int64
	AcquireDuration time.Duration
}

// Health pings the pool and reports its current statistics.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	if err := c.Pool.Ping(ctx); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}, fmt.Errorf("store: health ping: %w", err)
	}

	stats := c.Pool.Stat()
	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start),
		TotalConns:      stats.TotalConns(),
		IdleConns:       stats.IdleConns(),
		AcquiredConns:   stats.AcquiredConns(),
		MaxConns:        stats.MaxConns(),
		AcquireCount:    stats.AcquireCount(),
		AcquireDuration: stats.AcquireDuration(),
	}, nil
}

// runMigrations applies all pending embedded SQL migrations using
// golang-migrate, via a short-lived database/sql connection (migrate's
// postgres driver does not speak pgx's native protocol).
func runMigrations(databaseURL string) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found")
	}

	db, err := stdsql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "hermes", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && len(name) > 4 && name[len(name)-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}
