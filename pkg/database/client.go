// Package database owns the PostgreSQL connection pools and the embedded
// schema migrations. One server is reached through two pools: a
// database/sql pool (pgx stdlib driver) used by the service layer, and a
// native pgx pool for code that needs PostgreSQL-specific behaviour such
// as transactional pg_notify. The NOTIFY listener holds its own dedicated
// connection outside either pool and is handed the connection string.
package database

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql
)

// Client bundles the two connection pools and the connection string they
// were built from.
type Client struct {
	db         *stdsql.DB
	pool       *pgxpool.Pool
	connString string
}

// DB returns the database/sql pool used by the service layer.
func (c *Client) DB() *stdsql.DB {
	return c.db
}

// Pool returns the native pgx pool used by the event publisher.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// ConnString returns the connection string, for components that maintain
// their own dedicated connection (the NOTIFY listener).
func (c *Client) ConnString() string {
	return c.connString
}

// Close releases both pools.
func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// NewClient opens both pools, verifies connectivity and applies pending
// migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	return open(ctx, cfg.DSN(), cfg)
}

// NewClientFromConnString opens a client from a ready connection string
// (URL or keyword/value form) with default pool sizing. Tests running
// against throwaway containers use this path.
func NewClientFromConnString(ctx context.Context, connString string) (*Client, error) {
	cfg := Config{
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
	}
	return open(ctx, connString, cfg)
}

func open(ctx context.Context, connString string, cfg Config) (*Client, error) {
	db, err := stdsql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping pgx pool: %w", err)
	}

	if err := runMigrations(db, poolCfg.ConnConfig.Database); err != nil {
		pool.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Client{db: db, pool: pool, connString: connString}, nil
}
