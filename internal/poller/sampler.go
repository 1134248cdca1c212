package poller

import (
	"context"
	"fmt"

	"github.com/queryhawk/queryhawk/internal/dbpool"
)

// Introspection battery run on every sampling cycle.
const (
	queryDatabaseName = `SELECT current_database()`

	queryTransactions = `
		SELECT xact_commit + xact_rollback
		FROM pg_stat_database
		WHERE datname = current_database()`

	queryCacheBlocks = `
		SELECT COALESCE(sum(heap_blks_hit), 0),
		       COALESCE(sum(heap_blks_read), 0)
		FROM pg_statio_user_tables`

	queryActiveSessions = `
		SELECT count(*)
		FROM pg_stat_activity
		WHERE state = 'active'`
)

// pgSampler samples a live PostgreSQL database through a small pool.
type pgSampler struct {
	pool *dbpool.Pool
}

// NewPgSampler opens a pool against the monitored database. The ctx deadline
// bounds the connection attempt.
func NewPgSampler(ctx context.Context, connectionURI string) (Sampler, error) {
	pool, err := dbpool.New(ctx, connectionURI)
	if err != nil {
		return nil, err
	}

	return &pgSampler{pool: pool}, nil
}

// Sample acquires one connection, runs the introspection battery, and
// releases the connection regardless of outcome.
func (p *pgSampler) Sample(ctx context.Context) (Stats, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	var stats Stats

	if err := conn.QueryRow(ctx, queryDatabaseName).Scan(&stats.Database); err != nil {
		return Stats{}, fmt.Errorf("querying database name: %w", err)
	}

	if err := conn.QueryRow(ctx, queryTransactions).Scan(&stats.Transactions); err != nil {
		return Stats{}, fmt.Errorf("querying transaction counts: %w", err)
	}

	if err := conn.QueryRow(ctx, queryCacheBlocks).Scan(&stats.BlocksHit, &stats.BlocksRead); err != nil {
		return Stats{}, fmt.Errorf("querying cache blocks: %w", err)
	}

	if err := conn.QueryRow(ctx, queryActiveSessions).Scan(&stats.ActiveSessions); err != nil {
		return Stats{}, fmt.Errorf("querying active sessions: %w", err)
	}

	return stats, nil
}

// Close closes the underlying pool.
func (p *pgSampler) Close() {
	p.pool.Close()
}
