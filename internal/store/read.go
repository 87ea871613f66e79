package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Get retrieves a single record by key. Absence is reported as ok == false,
// not as an error.
func (s *Store) Get(ctx context.Context, collection, key string) (record json.RawMessage, ok bool, err error) {
	c, err := s.collection("get", collection)
	if err != nil {
		return nil, false, err
	}

	err = s.withTx(ctx, "get", collection, key, func(tx *sql.Tx) error {
		var body string
		scanErr := tx.QueryRowContext(ctx, `SELECT body FROM `+quoteIdent(c.Name)+` WHERE id = ?`, key).Scan(&body)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		record, ok = json.RawMessage(body), true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return record, ok, nil
}

// GetAll returns every record in the collection ordered by key
// (binary collation).
//
// Returns an empty slice (not nil) if the collection is empty.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	c, err := s.collection("getAll", collection)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	err = s.withTx(ctx, "getAll", collection, "", func(tx *sql.Tx) error {
		records, err = queryBodies(ctx, tx, `
			SELECT body FROM `+quoteIdent(c.Name)+`
			ORDER BY id COLLATE BINARY ASC
		`)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Lookup returns the records whose secondary index field equals value,
// ordered by key. The field must be a declared index of the collection.
func (s *Store) Lookup(ctx context.Context, collection, field string, value any) ([]json.RawMessage, error) {
	c, err := s.collection("lookup", collection)
	if err != nil {
		return nil, err
	}
	if !c.HasIndex(field) {
		return nil, newError(CodeUnknownCollection, "lookup", collection, "",
			fmt.Errorf("field %q is not an index of %q", field, collection))
	}

	var records []json.RawMessage
	err = s.withTx(ctx, "lookup", collection, "", func(tx *sql.Tx) error {
		records, err = queryBodies(ctx, tx, `
			SELECT body FROM `+quoteIdent(c.Name)+`
			WHERE `+indexExpr(field)+` = ?
			ORDER BY id COLLATE BINARY ASC
		`, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	c, err := s.collection("count", collection)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.withTx(ctx, "count", collection, "", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(c.Name)).Scan(&n)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func queryBodies(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]json.RawMessage, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return records, nil
}
