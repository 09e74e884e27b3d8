package sqlite

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"
)

// TestDB is an in-memory database with helpers for tests.
type TestDB struct {
	DB       *sql.DB
	TxRunner *TxRunner
}

// NewTestDB opens an in-memory database closed automatically after the test.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	opts := DefaultDBOptions()
	db, err := NewDBWithOptions(context.Background(), ":memory:", opts)
	if err != nil {
		t.Fatalf("Failed to create in-memory test DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db, TxRunner: NewTxRunner(db, opts)}
}

// ApplyTestMigrations applies the migrations in dir of fsys.
func (tdb *TestDB) ApplyTestMigrations(t *testing.T, fsys fs.FS, dir string) {
	t.Helper()

	if _, err := ApplyMigrationsFS(tdb.DB, fsys, dir); err != nil {
		t.Fatalf("Failed to apply test migrations: %v", err)
	}
}

// Exec runs a statement and fails the test on error.
func (tdb *TestDB) Exec(t *testing.T, query string, args ...any) sql.Result {
	t.Helper()

	result, err := tdb.DB.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("Failed to execute query: %v", err)
	}
	return result
}

// CountRows returns the number of rows in tableName.
func (tdb *TestDB) CountRows(t *testing.T, tableName string) int {
	t.Helper()

	var count int
	row := tdb.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+tableName)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in table %s: %v", tableName, err)
	}
	return count
}

// TableExists reports whether tableName exists.
func (tdb *TestDB) TableExists(t *testing.T, tableName string) bool {
	t.Helper()

	var count int
	row := tdb.DB.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", tableName)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to check table existence: %v", err)
	}
	return count > 0
}
