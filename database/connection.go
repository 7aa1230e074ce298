package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx connection pool shared by the prediction repositories.
// Repositories run against either the pool directly or a transaction drawn
// from it by the unit of work.
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens a connection pool against databaseURL and verifies it
// with a ping before handing it out.
func NewConnection(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool and waits for checked-out connections to be returned
func (db *DB) Close() {
	db.Pool.Close()
}
