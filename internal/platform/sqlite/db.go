package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// TxLockMode selects the BEGIN variant used for transactions.
type TxLockMode string

const (
	// TxLockDeferred takes locks lazily on first read or write
	TxLockDeferred TxLockMode = "DEFERRED"
	// TxLockImmediate takes the RESERVED lock at BEGIN, avoiding SQLITE_BUSY on upgrade
	TxLockImmediate TxLockMode = "IMMEDIATE"
	// TxLockExclusive takes the EXCLUSIVE lock at BEGIN
	TxLockExclusive TxLockMode = "EXCLUSIVE"
)

// DBOptions holds connection pool and pragma settings.
type DBOptions struct {
	// ConnMaxLifetime is the maximum connection lifetime (0 = forever)
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle time of a connection (0 = forever)
	ConnMaxIdleTime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	// PingTimeout bounds the connectivity check at open time
	PingTimeout time.Duration
	// WALMode switches the journal to WAL; not supported for in-memory databases
	WALMode     bool
	ForeignKeys bool
	// BusyTimeout is how long SQLite waits on a locked database
	BusyTimeout time.Duration
	// TxLockMode is the lock mode used by TxRunner
	TxLockMode TxLockMode
}

// DefaultDBOptions returns settings for a private in-memory database.
// A single connection that never expires keeps the database alive: every
// new connection to ":memory:" would open an empty database.
func DefaultDBOptions() DBOptions {
	return DBOptions{
		ConnMaxLifetime: 0,
		ConnMaxIdleTime: 0,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		PingTimeout:     5 * time.Second,
		WALMode:         false,
		ForeignKeys:     true,
		BusyTimeout:     5 * time.Second,
		TxLockMode:      TxLockImmediate,
	}
}

// NewInMemoryDB opens a private in-memory SQLite database with default options.
// Its contents live exactly as long as the returned *sql.DB.
func NewInMemoryDB(ctx context.Context) (*sql.DB, error) {
	return NewDBWithOptions(ctx, ":memory:", DefaultDBOptions())
}

// NewDBWithOptions opens dsn, configures the pool, pings it and applies pragmas.
func NewDBWithOptions(ctx context.Context, dsn string, opts DBOptions) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := applyPragmaSettings(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply PRAGMA settings: %w", err)
	}

	return db, nil
}

// applyPragmaSettings configures the open connection.
func applyPragmaSettings(ctx context.Context, db *sql.DB, opts DBOptions) error {
	pragmas := make([]string, 0, 4)
	if opts.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if opts.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	pragmas = append(pragmas, "PRAGMA synchronous = NORMAL")
	if opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()))
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}
