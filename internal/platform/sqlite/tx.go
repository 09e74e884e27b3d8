package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketdesk/pkg/retry"
)

// txKey is the context key of the active transaction querier.
type txKey struct{}

// Querier is the query surface shared by *sql.DB, *sql.Tx and *sql.Conn,
// so store code runs unchanged inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
	_ Querier = (*sql.Conn)(nil)
)

// ErrNestedTx is returned when WithinTx is called inside another transaction.
var ErrNestedTx = errors.New("nested transactions are not supported by SQLite")

// TxRunner runs callbacks inside transactions with a fixed lock mode and
// retries attempts that fail with SQLITE_BUSY.
type TxRunner struct {
	DB         *sql.DB
	TxLockMode TxLockMode
	Retry      retry.Config
}

// NewTxRunner creates a TxRunner using the lock mode of opts.
func NewTxRunner(db *sql.DB, opts DBOptions) *TxRunner {
	mode := opts.TxLockMode
	if mode == "" {
		mode = TxLockDeferred
	}
	return &TxRunner{
		DB:         db,
		TxLockMode: mode,
		Retry: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   10 * time.Millisecond,
			MaxDelay:       500 * time.Millisecond,
			Multiplier:     2.0,
			JitterStrategy: retry.JitterEqual,
		},
	}
}

// WithinTx runs fn in a transaction. fn reaches the transaction through
// GetQuerier(ctx). A non-nil error from fn rolls back, nil commits.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetTxQuerier(ctx); ok {
		return ErrNestedTx
	}
	err := retry.DoWithRetryable(ctx, r.Retry, func(ctx context.Context) error {
		return r.executeTx(ctx, fn)
	}, isBusyError)

	var exceeded *retry.RetriesExceededError
	if errors.As(err, &exceeded) {
		return fmt.Errorf("sqlite busy: %w", exceeded.LastError)
	}
	return err
}

// GetTxQuerier returns the transaction stored in ctx, if any.
func GetTxQuerier(ctx context.Context) (Querier, bool) {
	q, ok := ctx.Value(txKey{}).(Querier)
	return q, ok
}

// GetQuerier returns the active transaction or, outside one, the DB.
func (r *TxRunner) GetQuerier(ctx context.Context) Querier {
	if q, ok := GetTxQuerier(ctx); ok {
		return q
	}
	return r.DB
}

// executeTx makes one attempt. The transaction runs on a pinned connection
// because BEGIN IMMEDIATE/EXCLUSIVE cannot be expressed through sql.TxOptions.
// Once the connection is acquired the transaction runs to completion even if
// ctx is canceled.
func (r *TxRunner) executeTx(ctx context.Context, fn func(ctx context.Context) error) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx = context.WithoutCancel(ctx)
	if _, err := conn.ExecContext(ctx, "BEGIN "+string(r.TxLockMode)); err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, conn)); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	return nil
}

// isBusyError reports whether err is a lock conflict worth retrying.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
