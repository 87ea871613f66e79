package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tourdesk/internal/schema"
)

// Store is the storage engine. It holds a pooled handle to one versioned
// SQLite database described by a schema.Registry.
type Store struct {
	db   *sql.DB
	path string
	reg  schema.Registry
}

// Open creates or opens the database at path using the default registry.
func Open(path string) (*Store, error) {
	return OpenWithRegistry(path, schema.Default())
}

// OpenWithRegistry creates or opens the database at path and materializes
// every collection and index declared by reg.
//
// Failures to reach the file are ErrStorageUnavailable; failures while
// creating or upgrading the layout are ErrSchemaUpgrade.
func OpenWithRegistry(path string, reg schema.Registry) (*Store, error) {
	if err := reg.Validate(); err != nil {
		return nil, newError(CodeSchemaUpgrade, "open", "", "", err)
	}
	if path == "" {
		return nil, newError(CodeStorageUnavailable, "open", "", "", errors.New("empty database path"))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, newError(CodeStorageUnavailable, "open", "", "", fmt.Errorf("create parent dir: %w", err))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, newError(CodeStorageUnavailable, "open", "", "", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, newError(CodeStorageUnavailable, "open", "", "", fmt.Errorf("connect: %w", err))
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, newError(CodeStorageUnavailable, "open", "", "", err)
	}

	if err := upgrade(db, reg); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, reg: reg}, nil
}

// Close closes the database handle. Safe to call on a nil or closed store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Registry returns the registry the store was opened with.
func (s *Store) Registry() schema.Registry {
	return s.reg
}

// Version returns the schema version recorded in the database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, txFailure("version", "", "", err)
	}
	return version, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// collection resolves name against the registry.
func (s *Store) collection(op, name string) (schema.Collection, error) {
	c, ok := s.reg.Lookup(name)
	if !ok {
		return schema.Collection{}, unknownCollection(op, name)
	}
	return c, nil
}

// withTx runs fn inside a fresh transaction scoped to one operation. The
// transaction is rolled back on every path that does not reach Commit.
func (s *Store) withTx(ctx context.Context, op, collection, key string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return txFailure(op, collection, key, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return txFailure(op, collection, key, err)
	}

	if err := tx.Commit(); err != nil {
		return txFailure(op, collection, key, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// quoteIdent quotes a registry identifier for use in DDL and DML. Names are
// restricted to [A-Za-z0-9_] by schema.Registry.Validate.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
