// Package dbpool provides connection pool management for monitored
// user databases.
package dbpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgxpool.Pool attached to one monitored database. The
// underlying pool is unexported so sampling code cannot bypass the scoped
// Acquire/release pattern.
type Pool struct {
	pool *pgxpool.Pool
}

// New creates a pool for a monitored database and verifies connectivity.
// The ctx deadline bounds the initial connection attempt.
func New(ctx context.Context, connectionURI string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	// Introspection queries are cheap; keep the footprint on the user's
	// database small.
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = "30000"
	cfg.MaxConns = 5
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Acquire returns a connection from the pool. Callers must Release it.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return p.pool.Acquire(ctx)
}

// QueryRow executes a query that returns at most one row.
func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Ping verifies the pool can reach the database.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool, waiting for acquired connections to be
// released.
func (p *Pool) Close() {
	p.pool.Close()
}
