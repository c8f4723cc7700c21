package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kinvex_session (
	slot  TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLiteStore keeps the slots as rows of a single table. It is meant for desktop and
// kiosk deployments that already ship a local database file.
type SQLiteStore struct {
	db     *sql.DB
	keys   Keys
	owned  bool
	closed atomic.Bool
}

// OpenSQLiteStore opens (or creates) the database at path and prepares the schema.
// Use ":memory:" for a throwaway store.
func OpenSQLiteStore(ctx context.Context, path string, keys Keys) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(ctx, db, keys)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStore prepares the schema on an existing handle. The caller owns db.
func NewSQLiteStore(ctx context.Context, db *sql.DB, keys Keys) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("sqlite handle required")
	}
	keys = keys.withDefaults()
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &SQLiteStore{db: db, keys: keys}, nil
}

// Close releases the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) || !s.owned {
		return nil
	}
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, pair Pair) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := upsertSlot(ctx, tx, s.keys.Access, []byte(pair.AccessToken)); err != nil {
			return err
		}
		return upsertSlot(ctx, tx, s.keys.Refresh, []byte(pair.RefreshToken))
	})
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (Pair, bool, error) {
	if s.closed.Load() {
		return Pair{}, false, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, value FROM kinvex_session WHERE slot IN (?, ?)`,
		s.keys.Access, s.keys.Refresh,
	)
	if err != nil {
		return Pair{}, false, fmt.Errorf("load pair: %w", err)
	}
	defer rows.Close()

	var pair Pair
	for rows.Next() {
		var slot string
		var value []byte
		if err := rows.Scan(&slot, &value); err != nil {
			return Pair{}, false, fmt.Errorf("scan pair: %w", err)
		}
		switch slot {
		case s.keys.Access:
			pair.AccessToken = string(value)
		case s.keys.Refresh:
			pair.RefreshToken = string(value)
		}
	}
	if err := rows.Err(); err != nil {
		return Pair{}, false, fmt.Errorf("iterate pair: %w", err)
	}
	return pair, !pair.Empty(), nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM kinvex_session WHERE slot IN (?, ?, ?)`,
			s.keys.Access, s.keys.Refresh, s.keys.User,
		)
		return err
	})
}

// SaveUser implements Store.
func (s *SQLiteStore) SaveUser(ctx context.Context, user []byte) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		return upsertSlot(ctx, tx, s.keys.User, user)
	})
}

// LoadUser implements Store.
func (s *SQLiteStore) LoadUser(ctx context.Context) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kinvex_session WHERE slot = ?`, s.keys.User).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load user: %w", err)
	}
	return raw, true, nil
}

func (s *SQLiteStore) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("session tx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session tx: %w", err)
	}
	return nil
}

func upsertSlot(ctx context.Context, tx *sql.Tx, slot string, value []byte) error {
	if len(value) == 0 {
		_, err := tx.ExecContext(ctx, `DELETE FROM kinvex_session WHERE slot = ?`, slot)
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kinvex_session (slot, value) VALUES (?, ?)
		 ON CONFLICT(slot) DO UPDATE SET value = excluded.value`,
		slot, value,
	)
	return err
}
