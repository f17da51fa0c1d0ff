// Package store implements the sidecar SQLite index described in §4.6:
// notes, metadata, links, note-type descriptions, the ID migration map,
// review items/state/config, hierarchy edges, workflows, suggestions,
// UI state and the schema_version log. It owns the single writer
// connection for the vault and the advisory lock that enforces the
// single-local-process non-goal from §1.
package store

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/gofrs/flock"

	"github.com/flint-note/flint/internal/ferr"
	"github.com/flint-note/flint/internal/logging"
)

// Store wraps the vault's SQLite index. The pool holds a single
// connection, so statements run one at a time; transactional writes
// (withTx) also hold the mutex for their whole duration.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	log  logging.Logger
	mu   sync.Mutex
}

// Open opens (creating if necessary) the index at dbPath, acquires the
// single-writer advisory lock at dbPath+".lock", applies PRAGMAs, and
// ensures the baseline schema exists at version 1.0.0. It does not run
// the later migration chain — call Migrate (internal/store Migrate) for
// that, typically from internal/vault.Open.
func Open(ctx context.Context, dbPath string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Noop
	}

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, ferr.Wrap(ferr.IO, "acquire vault lock", err)
	}
	if !locked {
		return nil, ferr.New(ferr.Conflict, "vault is already open by another process")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, ferr.Wrap(ferr.IO, "open index database", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, ferr.Wrap(ferr.IO, "apply pragma "+pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, ferr.Wrap(ferr.IO, "apply baseline schema", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES ('1.0.0')`); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, ferr.Wrap(ferr.IO, "record baseline schema version", err)
	}

	return &Store{db: db, lock: lock, log: log}, nil
}

// Close releases the database handle and the advisory lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// DB exposes the underlying *sql.DB for migrations and ad-hoc queries
// that do not yet have a dedicated method.
func (s *Store) DB() *sql.DB { return s.db }

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error, matching the "link rewrites are atomic" guarantee
// from §5.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ferr.Wrap(ferr.IO, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return ferr.Wrap(ferr.IO, "commit transaction", err)
	}
	return nil
}

