// Package store implements the persisted state of the resource hierarchy,
// main tags, metadata, attachments, and the change/export logs, atop an
// embedded transactional SQL engine.
//
// database/sql plus modernc.org/sqlite give a single-process, cgo-free,
// embedded engine that supports both a filesystem path and ":memory:"
// (see DESIGN.md for the dependency tradeoff).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kestrelhealth/pacsindex/idxerr"
	"github.com/kestrelhealth/pacsindex/logger"
)

// Store owns the embedded database handle. All access goes through a
// single *sql.DB; concurrency is bounded by the facade's mutex above it,
// so the store itself does no internal locking.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (and, if necessary, creates) the embedded database. path is
// either ":memory:" for a non-persistent store, or a directory under which
// an "index" subpath is created.
func Open(path string, log *logger.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Join(path, "index")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("open embedded store: %w", err))
	}

	// The engine is accessed from exactly one goroutine at a time (the
	// facade's mutex enforces this), but the background flusher and the
	// odd health check both dial in, so keep the pool small rather than
	// serialize at the sql.DB level with MaxOpenConns(1).
	db.SetMaxOpenConns(4)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("enable foreign keys: %w", err))
	}
	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			db.Close()
			return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("enable WAL: %w", err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("apply schema: %w", err))
	}

	log.Info("embedded store opened", "path", path)

	return &Store{db: db, log: log}, nil
}

// Close closes the embedded database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Flush requests the engine flush buffered writes to stable storage. For
// the WAL journal mode this is a checkpoint; for ":memory:" it is a no-op.
// Called periodically by the facade's background durability flusher.
func (s *Store) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(PASSIVE);`); err != nil {
		return idxerr.Wrap(idxerr.Storage, fmt.Errorf("flush: %w", err))
	}
	return nil
}

// Tx is one schema transaction. Every facade operation runs inside exactly
// one Tx. It also buffers the signals the deletion walker discovers, so
// the listener protocol can be flushed only after the enclosing
// transaction has actually committed — the "buffer then flush after
// commit" resolution recorded in DESIGN.md.
type Tx struct {
	tx *sql.Tx

	pendingFileDeletes      []string
	pendingRemainingAncestors []RemainingAncestorSignal
}

// RemainingAncestorSignal is one "this ancestor still has children" signal
// discovered by the deletion walker while cascading upward.
type RemainingAncestorSignal struct {
	Level    int
	PublicID string
}

// WithTx runs fn inside one transaction, committing on success and rolling
// back on error or panic. fn's pending delete-sink signals are only
// returned to the caller once the commit itself has succeeded.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (fileDeletes []string, remaining []RemainingAncestorSignal, err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("begin transaction: %w", err))
	}

	tx := &Tx{tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		sqlTx.Rollback()
		return nil, nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, nil, idxerr.Wrap(idxerr.Storage, fmt.Errorf("commit transaction: %w", err))
	}

	return tx.pendingFileDeletes, tx.pendingRemainingAncestors, nil
}

func (tx *Tx) bufferFileDelete(uuid string) {
	tx.pendingFileDeletes = append(tx.pendingFileDeletes, uuid)
}

func (tx *Tx) bufferRemainingAncestor(level int, publicID string) {
	tx.pendingRemainingAncestors = append(tx.pendingRemainingAncestors, RemainingAncestorSignal{Level: level, PublicID: publicID})
}
