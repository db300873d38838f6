package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"iopps-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// FilterPreferencesSchema creates the table backing saved job filters.
const FilterPreferencesSchema = `CREATE TABLE IF NOT EXISTS user_filter_preferences (
	storage_key TEXT PRIMARY KEY,
	filters     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled connection. The pool connects lazily; call Ping to verify it.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// EnsureSchema creates user_filter_preferences when it does not exist yet.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, FilterPreferencesSchema); err != nil {
		return fmt.Errorf("create user_filter_preferences: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
