package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	migrate "github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationInfo describes the schema state after ApplyMigrationsFS.
type MigrationInfo struct {
	Version uint
	Dirty   bool
	Changed bool
}

// ApplyMigrationsFS applies the migrations in dir of fsys to db.
// It works on the existing handle, which is required for in-memory
// databases where a second connection would see an empty database.
// migrate.ErrNoChange is not an error.
func ApplyMigrationsFS(db *sql.DB, fsys fs.FS, dir string) (MigrationInfo, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("failed to open migrations source: %w", err)
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	// m.Close is not called: it would close db, which the caller owns.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	info := MigrationInfo{Changed: true}
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return MigrationInfo{}, fmt.Errorf("failed to apply migrations: %w", err)
		}
		info.Changed = false
	}

	info.Version, info.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationInfo{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return info, nil
}
