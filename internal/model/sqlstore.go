package model

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"ticketdesk/internal/platform/sqlite"
	"ticketdesk/internal/shared"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps the slot collection in the ticket_slots table of an
// in-memory SQLite database. A row with live = 0 is a tombstone.
type SQLiteStore struct {
	db *sql.DB
	tx *sqlite.TxRunner
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens a private in-memory database and migrates it.
// The data is gone once the store is closed.
func OpenSQLiteStore(ctx context.Context) (*SQLiteStore, error) {
	opts := sqlite.DefaultDBOptions()
	db, err := sqlite.NewDBWithOptions(ctx, ":memory:", opts)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLiteStore(db, sqlite.NewTxRunner(db, opts))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore migrates db and returns a store over it. The runner must
// use an IMMEDIATE or EXCLUSIVE lock mode so that id assignment is serialized.
func NewSQLiteStore(db *sql.DB, runner *sqlite.TxRunner) (*SQLiteStore, error) {
	if _, err := sqlite.ApplyMigrationsFS(db, migrationsFS, "migrations"); err != nil {
		return nil, shared.Wrap(err, "migrate ticket store")
	}
	return &SQLiteStore{db: db, tx: runner}, nil
}

// Close releases the database and everything in it.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, title string) (Ticket, error) {
	var t Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := s.tx.GetQuerier(ctx)
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticket_slots`).Scan(&t.ID); err != nil {
			return err
		}
		t.Title = title
		_, err := q.ExecContext(ctx, `INSERT INTO ticket_slots (id, title) VALUES (?, ?)`, t.ID, t.Title)
		return err
	})
	if err != nil {
		return Ticket{}, shared.MarkKind(fmt.Errorf("create ticket: %w", err), shared.KindInternal)
	}
	return t, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Ticket, error) {
	out := make([]Ticket, 0)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rows, err := s.tx.GetQuerier(ctx).QueryContext(ctx,
			`SELECT id, title FROM ticket_slots WHERE live = 1 ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var t Ticket
			if err := rows.Scan(&t.ID, &t.Title); err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("list tickets: %w", err), shared.KindInternal)
	}
	return out, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (Ticket, error) {
	if id < 0 {
		return Ticket{}, &shared.ResourceNotFoundError{ID: id}
	}

	t := Ticket{ID: id}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := s.tx.GetQuerier(ctx)
		err := q.QueryRowContext(ctx,
			`SELECT title FROM ticket_slots WHERE id = ? AND live = 1`, id).Scan(&t.Title)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `UPDATE ticket_slots SET live = 0, title = '' WHERE id = ?`, id)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, &shared.ResourceNotFoundError{ID: id}
	}
	if err != nil {
		return Ticket{}, shared.MarkKind(fmt.Errorf("delete ticket %d: %w", id, err), shared.KindInternal)
	}
	return t, nil
}

// Stats implements Store.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.tx.GetQuerier(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(live), 0) FROM ticket_slots`).Scan(&st.Slots, &st.Live)
	if err != nil {
		return Stats{}, shared.MarkKind(fmt.Errorf("ticket stats: %w", err), shared.KindInternal)
	}
	st.Tombstones = st.Slots - st.Live
	return st, nil
}
