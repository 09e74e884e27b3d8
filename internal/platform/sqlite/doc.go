// Package sqlite provides the embedded SQLite plumbing behind the SQL ticket
// store: opening a private in-memory database, transactions with an explicit
// lock mode, and schema migrations from an fs.FS.
//
//	db, err := sqlite.NewInMemoryDB(ctx)
//	if err != nil {
//		return err
//	}
//	if _, err := sqlite.ApplyMigrationsFS(db, migrationsFS, "migrations"); err != nil {
//		return err
//	}
//	runner := sqlite.NewTxRunner(db, sqlite.DefaultDBOptions())
//	err = runner.WithinTx(ctx, func(ctx context.Context) error {
//		_, err := runner.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO t (v) VALUES (?)", 1)
//		return err
//	})
//
// Transactions run on a pinned connection opened with BEGIN <mode>; attempts
// failing with SQLITE_BUSY are retried with backoff from pkg/retry.
package sqlite
