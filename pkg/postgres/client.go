// Package postgres wraps database/sql with the lib/pq driver: pool settings
// from config, a connect-time retry, transactions and schema setup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Dictionary-Text-Analytics/pkg/resilience"
	_ "github.com/lib/pq"
)

// Client owns the connection pool. DB is exported for queries that need no
// transaction.
type Client struct {
	DB     *sql.DB
	logger *slog.Logger
}

// New opens the pool and pings it, retrying with backoff while the database
// comes up.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	connect := resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 250 * time.Millisecond}
	err = resilience.Retry(ctx, "postgres connect", connect, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	c := &Client{
		DB:     db,
		logger: slog.Default().With("component", "postgres", "database", cfg.Database),
	}
	c.logger.Info("connected", "max_open_conns", cfg.MaxOpenConns)
	return c, nil
}

// Ping checks the connection; used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InTx runs fn in a transaction that commits when fn returns nil and rolls
// back otherwise, including when fn panics.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// Migrate applies idempotent DDL for the named schema in one transaction.
// An advisory lock keyed on name serialises replicas that start together, so
// concurrent CREATE ... IF NOT EXISTS statements cannot collide.
func (c *Client) Migrate(ctx context.Context, name string, statements ...string) error {
	err := c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name); err != nil {
			return fmt.Errorf("locking: %w", err)
		}
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migrating %s: %w", name, err)
	}
	c.logger.Debug("schema ready", "schema", name, "statements", len(statements))
	return nil
}
