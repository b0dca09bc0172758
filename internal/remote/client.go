// Package remote is the Postgres adapter for the sync engine: a single
// session connection (advisory locks are session-scoped), explicit
// transactions with savepoint helpers, and schema introspection.
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSyncInProgress distinguishes advisory-lock contention from other
// failures. It is retryable: the holder releases the lock when its run
// finishes.
var ErrSyncInProgress = errors.New("another sync may be in progress for this connection")

// Client wraps one Postgres session.
type Client struct {
	conn    *pgx.Conn
	lockKey int64
	locked  bool
}

// Connect opens a session with bounded connect and statement timeouts.
func Connect(ctx context.Context, connString string, connectTimeout, statementTimeout time.Duration) (*Client, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	cfg.ConnectTimeout = connectTimeout
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = map[string]string{}
	}
	cfg.RuntimeParams["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote database: %w", err)
	}

	return &Client{conn: conn, lockKey: LockKey(connString)}, nil
}

// LockKey derives a positive 63-bit advisory lock key from the
// connection string. The key is per-remote-database: any two processes
// pointed at the same DSN serialize against each other.
func LockKey(connString string) int64 {
	sum := sha256.Sum256([]byte(connString))
	return int64(binary.BigEndian.Uint64(sum[:8]) & 0x7FFFFFFFFFFFFFFF)
}

// TryLock attempts the non-blocking advisory lock for this connection.
// Returns ErrSyncInProgress when the lock is held elsewhere.
func (c *Client) TryLock(ctx context.Context) error {
	var acquired bool
	err := c.conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", c.lockKey).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !acquired {
		return ErrSyncInProgress
	}
	c.locked = true
	return nil
}

// Unlock releases the advisory lock if held. Safe to call on error
// paths where the lock may never have been acquired.
func (c *Client) Unlock(ctx context.Context) error {
	if !c.locked {
		return nil
	}
	c.locked = false
	var released bool
	if err := c.conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", c.lockKey).Scan(&released); err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	return nil
}

// Begin starts an explicit transaction.
func (c *Client) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Close terminates the session. Best effort on error paths.
func (c *Client) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Savepoint marks a named sub-point within tx.
func Savepoint(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

// RollbackTo rolls back to a savepoint without aborting the
// surrounding transaction.
func RollbackTo(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

// ReleaseSavepoint discards a savepoint after its row committed.
func ReleaseSavepoint(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return err
}

// querier is satisfied by both *pgx.Conn and pgx.Tx, so reads can run
// inside or outside an explicit transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
