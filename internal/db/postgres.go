// Package db provides database connection helpers.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool opens a pool capped at maxConns connections and pings it.
// maxConns <= 0 keeps the pgxpool default. The collector runs every statement
// sequentially, so callers pass 1.
func NewPostgresPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
		cfg.MinConns = 0
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// EnsureDatabase connects to the maintenance database at maintenanceURL and
// creates dbName if it does not exist yet. It reports whether the database
// was created.
func EnsureDatabase(ctx context.Context, maintenanceURL, dbName string) (bool, error) {
	conn, err := pgx.Connect(ctx, maintenanceURL)
	if err != nil {
		return false, fmt.Errorf("connect maintenance db: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup database %q: %w", dbName, err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE takes no bind parameters.
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %q: %w", dbName, err)
	}
	return true, nil
}
