package sqlite

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"migrations/0001_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, v TEXT NOT NULL);")},
	"migrations/0001_items.down.sql": {Data: []byte("DROP TABLE items;")},
}

func TestDefaultDBOptions(t *testing.T) {
	opts := DefaultDBOptions()

	assert.Equal(t, time.Duration(0), opts.ConnMaxLifetime)
	assert.Equal(t, time.Duration(0), opts.ConnMaxIdleTime)
	assert.Equal(t, 1, opts.MaxOpenConns)
	assert.Equal(t, 1, opts.MaxIdleConns)
	assert.False(t, opts.WALMode)
	assert.True(t, opts.ForeignKeys)
	assert.Equal(t, 5*time.Second, opts.BusyTimeout)
	assert.Equal(t, TxLockImmediate, opts.TxLockMode)
}

func TestNewInMemoryDB(t *testing.T) {
	db, err := NewInMemoryDB(context.Background())
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestApplyMigrationsFS(t *testing.T) {
	tdb := NewTestDB(t)

	info, err := ApplyMigrationsFS(tdb.DB, testMigrations, "migrations")
	require.NoError(t, err)
	assert.True(t, info.Changed)
	assert.Equal(t, uint(1), info.Version)
	assert.False(t, info.Dirty)
	assert.True(t, tdb.TableExists(t, "items"))

	t.Run("second run is a no-op", func(t *testing.T) {
		info, err := ApplyMigrationsFS(tdb.DB, testMigrations, "migrations")
		require.NoError(t, err)
		assert.False(t, info.Changed)
		assert.Equal(t, uint(1), info.Version)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := ApplyMigrationsFS(tdb.DB, testMigrations, "nope")
		assert.Error(t, err)
	})
}

func TestWithinTx_CommitAndRollback(t *testing.T) {
	tdb := NewTestDB(t)
	tdb.ApplyTestMigrations(t, testMigrations, "migrations")
	ctx := context.Background()

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context) error {
		_, err := tdb.TxRunner.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO items (v) VALUES (?)", "kept")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tdb.CountRows(t, "items"))

	boom := errors.New("boom")
	err = tdb.TxRunner.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := tdb.TxRunner.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO items (v) VALUES (?)", "dropped"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, tdb.CountRows(t, "items"))
}

func TestWithinTx_CompletesAfterCancel(t *testing.T) {
	tdb := NewTestDB(t)
	tdb.ApplyTestMigrations(t, testMigrations, "migrations")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := tdb.TxRunner.WithinTx(ctx, func(txCtx context.Context) error {
		cancel()
		<-ctx.Done()
		assert.NoError(t, txCtx.Err(), "the transaction context outlives the caller")
		_, err := tdb.TxRunner.GetQuerier(txCtx).ExecContext(txCtx, "INSERT INTO items (v) VALUES (?)", "late")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tdb.CountRows(t, "items"))
}

func TestWithinTx_Nested(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context) error {
		return tdb.TxRunner.WithinTx(ctx, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, ErrNestedTx)
}

func TestGetQuerier_OutsideTx(t *testing.T) {
	tdb := NewTestDB(t)

	_, ok := GetTxQuerier(context.Background())
	assert.False(t, ok)
	assert.Equal(t, Querier(tdb.DB), tdb.TxRunner.GetQuerier(context.Background()))
}

func TestIsBusyError(t *testing.T) {
	assert.False(t, isBusyError(nil))
	assert.True(t, isBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, isBusyError(errors.New("database table is locked")))
	assert.False(t, isBusyError(errors.New("constraint failed")))
}
