// Package postgres stores evaluation runs in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// maxConns suits the CLI: one writer transaction plus a few readers.
	maxConns = 4

	pingTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
	id           UUID PRIMARY KEY,
	dataset      TEXT NOT NULL DEFAULT '',
	api_url      TEXT NOT NULL DEFAULT '',
	k            INTEGER NOT NULL,
	recall       DOUBLE PRECISION NOT NULL,
	hits         INTEGER NOT NULL,
	processed    INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation_results (
	run_id        UUID NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
	row_number    INTEGER NOT NULL,
	query         TEXT NOT NULL,
	expected_slug TEXT NOT NULL,
	status        TEXT NOT NULL,
	top_slug      TEXT NOT NULL DEFAULT '',
	urls          TEXT[] NOT NULL DEFAULT '{}',
	error_message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, row_number)
);

CREATE INDEX IF NOT EXISTS evaluation_runs_started_at_idx ON evaluation_runs (started_at DESC);
`

// DB holds the connection pool shared by the evaluation repositories.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool against databaseURL and checks that the server answers.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if config.MaxConns > maxConns {
		config.MaxConns = maxConns
	}
	config.ConnConfig.RuntimeParams["application_name"] = "recommendd"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// EnsureSchema creates the evaluation tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.Pool.Close()
}
