// Package store is the Read Cache Store: schema bootstrap, connection
// management, and named advisory locks over the SQLite database that
// backs the Cache Query API. Grounded on the teacher's internal/db
// package (embedded schema, WAL + foreign-key pragmas, schema-mismatch
// auto-recreate), generalized with an explicit config-hash input since
// rosefs additionally invalidates the cache when the user's
// configuration changes shape, not just when the table schema does.
package store

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nucle0tides/rosefs/internal/errs"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql's shape changes in a way
// that isn't already covered by the hash of its own text (it isn't,
// in practice — the hash already changes whenever this file changes —
// but the version is persisted alongside the hash for forensic value
// when inspecting an old cache database by hand).
const schemaVersion = 1

// Store wraps the cache database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path,
// applying WAL and foreign-key pragmas, then runs Migrate against
// configHash — a caller-supplied digest of whatever configuration
// fields affect cache validity (source dir, alias map, ignore list).
// A destructive rebuild is retried once if opening trips over an
// incompatible schema left by an old binary.
func Open(ctx context.Context, path, configHash string) (*Store, error) {
	s, err := openDB(path)
	if err != nil {
		if isSchemaError(err) {
			if rmErr := removeDBFiles(path); rmErr != nil {
				return nil, fmt.Errorf("store: remove incompatible cache: %w", rmErr)
			}
			s, err = openDB(path)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.migrate(ctx, configHash); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func isSchemaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "SQL logic error")
}

func removeDBFiles(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func openDB(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create cache dir: %w", err)
	}

	escaped := strings.ReplaceAll(path, " ", "%20")
	db, err := sql.Open("sqlite", "file:"+escaped+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// migrate reads the single _schema_hash row (if any) and compares it
// against the current schema text's hash and the caller's configHash.
// Any mismatch — including a brand-new, empty database — triggers a
// full destructive rebuild: every table is dropped and schema.sql is
// re-executed, so the caller's next indexing pass starts from zero.
func (s *Store) migrate(ctx context.Context, configHash string) error {
	wantSchemaHash := hashSchema()

	row := s.db.QueryRowContext(ctx, `SELECT schema_hash, config_hash FROM _schema_hash LIMIT 1`)
	var gotSchemaHash, gotConfigHash string
	err := row.Scan(&gotSchemaHash, &gotConfigHash)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.rebuild(ctx, wantSchemaHash, configHash)
	case err != nil:
		return fmt.Errorf("store: read schema hash: %w", err)
	case gotSchemaHash != wantSchemaHash || gotConfigHash != configHash:
		return s.rebuild(ctx, wantSchemaHash, configHash)
	default:
		return nil
	}
}

func (s *Store) rebuild(ctx context.Context, schemaHash, configHash string) error {
	tables, err := s.listTables(ctx)
	if err != nil {
		return fmt.Errorf("store: list tables for rebuild: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin rebuild tx: %w", err)
	}
	defer tx.Rollback()

	for _, name := range tables {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(name)); err != nil {
			return fmt.Errorf("store: drop %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: recreate schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO _schema_hash (schema_hash, config_hash, version) VALUES (?, ?, ?)`,
		schemaHash, configHash, schemaVersion,
	); err != nil {
		return fmt.Errorf("store: write schema hash: %w", err)
	}
	return tx.Commit()
}

func (s *Store) listTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type IN ('table', 'view')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, "sqlite_") {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func hashSchema() string {
	sum := sha256.Sum256([]byte(schemaSQL))
	return hex.EncodeToString(sum[:])
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for packages that need to run
// their own queries (the Cache Query API, the Incremental Indexer, the
// Rules Engine).
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on any error (including a panic unwound by the caller).
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Lock acquires the named advisory lock, polling until it succeeds or
// timeout elapses. The returned unlock func must be called exactly
// once (callers should defer it immediately) to release the lock on
// every exit path, including error paths.
func (s *Store) Lock(ctx context.Context, name string, timeout time.Duration) (unlock func(), err error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 20 * time.Millisecond

	for {
		validUntil := time.Now().Add(timeout).UTC().Format(time.RFC3339Nano)
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO locks (name, valid_until) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET valid_until = excluded.valid_until
			 WHERE locks.valid_until < ?`,
			name, validUntil, time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("store: acquire lock %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return func() {
				s.db.Exec(`DELETE FROM locks WHERE name = ?`, name)
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, errs.LockTimeout(name)
		}
		select {
		case <-ctx.Done():
			return nil, errs.LockTimeout(name)
		case <-time.After(pollInterval):
		}
	}
}

// DefaultDBPath returns the default cache database path when the
// config doesn't set cache_database_path explicitly.
func DefaultDBPath(cacheDir string) string {
	return filepath.Join(cacheDir, "cache.sqlite3")
}
