// SPDX-License-Identifier: MIT

// Package store persists the rundown document in sqlite. The daemon is the
// only writer; external editors go through the HTTP document boundary, so a
// single-connection database keeps transactions trivially serialized.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/rundown"
)

// defaultRundownID names the single active document. The schema carries the
// rundown id column so multi-document support stays a migration, not a rewrite.
const defaultRundownID = "default"

var ErrNotFound = errors.New("rundown not found")

// Store is the sqlite-backed rundown document store.
type Store struct {
	db      *sql.DB
	logger  zerolog.Logger
	changes chan struct{}
}

// Open opens (creating if necessary) the database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = db.Close()
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:      db,
		logger:  log.WithComponent("store"),
		changes: make(chan struct{}, 1),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database answers queries. Used by the readiness
// checker.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Changes returns a channel that receives a signal after every successful
// Replace. The channel is buffered with depth one: coalesced notifications
// are fine because the consumer always reloads the full document.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Load returns the persisted rundown entries in document order. A missing
// document yields an empty slice, not an error: a fresh daemon starts with
// an empty rundown.
func (s *Store) Load(ctx context.Context) ([]rundown.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM entries
WHERE rundown_id = ?
ORDER BY position ASC
`, defaultRundownID)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	out := make([]rundown.Entry, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		var entry rundown.Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode entry payload: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter entries: %w", err)
	}
	return out, nil
}

// Replace swaps the whole document transactionally. Entries without ids get
// fresh uuids; the stored (possibly id-assigned) entries are returned. On
// success a change notification is emitted.
func (s *Store) Replace(ctx context.Context, entries []rundown.Entry) ([]rundown.Entry, error) {
	if err := rundown.ValidateIDs(entries); err != nil {
		return nil, err
	}

	stored := make([]rundown.Entry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		stored[i] = e
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
INSERT INTO rundowns(rundown_id, updated_at) VALUES (?, datetime('now'))
ON CONFLICT(rundown_id) DO UPDATE SET updated_at=excluded.updated_at
`, defaultRundownID); err != nil {
		return nil, fmt.Errorf("upsert rundown: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE rundown_id = ?`, defaultRundownID); err != nil {
		return nil, fmt.Errorf("clear entries: %w", err)
	}

	for i, e := range stored {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode entry %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO entries(rundown_id, position, entry_id, kind, payload)
VALUES (?, ?, ?, ?, ?)
`, defaultRundownID, i, e.ID, string(e.Kind), payload); err != nil {
			return nil, fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}

	s.logger.Info().
		Str(log.FieldEvent, "store.replaced").
		Int("entries", len(stored)).
		Msg("rundown document replaced")

	s.notify()
	return stored, nil
}

// notify emits a coalesced change signal.
func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
