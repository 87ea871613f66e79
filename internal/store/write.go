package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/tourdesk/internal/schema"
)

// Add inserts a new record. Fails with ErrDuplicateKey when a record with the
// same key exists; the stored record is left unchanged in that case.
func (s *Store) Add(ctx context.Context, collection string, record json.RawMessage) (json.RawMessage, error) {
	c, err := s.collection("add", collection)
	if err != nil {
		return nil, err
	}
	key, body, err := encodeRecord("add", c, record)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, "add", collection, key, func(tx *sql.Tx) error {
		return insert(ctx, tx, "add", c, key, body)
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Update inserts or replaces a record by key. Absence is treated as creation.
func (s *Store) Update(ctx context.Context, collection string, record json.RawMessage) (json.RawMessage, error) {
	c, err := s.collection("update", collection)
	if err != nil {
		return nil, err
	}
	key, body, err := encodeRecord("update", c, record)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, "update", collection, key, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+quoteIdent(c.Name)+` (id, body)
			VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET body = excluded.body
		`, key, string(body))
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Delete removes the record with the given key. Deleting an absent key is a
// no-op.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	c, err := s.collection("delete", collection)
	if err != nil {
		return err
	}

	return s.withTx(ctx, "delete", collection, key, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdent(c.Name)+` WHERE id = ?`, key)
		return err
	})
}

// Clear removes every record in the collection.
func (s *Store) Clear(ctx context.Context, collection string) error {
	c, err := s.collection("clear", collection)
	if err != nil {
		return err
	}

	return s.withTx(ctx, "clear", collection, "", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdent(c.Name))
		return err
	})
}

// Replace makes the collection hold exactly records. The clear and every
// insert run in one transaction, so a failure (including a key repeated
// within records) leaves the previous contents in place.
func (s *Store) Replace(ctx context.Context, collection string, records []json.RawMessage) error {
	c, err := s.collection("replace", collection)
	if err != nil {
		return err
	}

	keys := make([]string, len(records))
	bodies := make([][]byte, len(records))
	for i, record := range records {
		keys[i], bodies[i], err = encodeRecord("replace", c, record)
		if err != nil {
			return err
		}
	}

	return s.withTx(ctx, "replace", collection, "", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdent(c.Name)); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		for i := range records {
			if err := insert(ctx, tx, "replace", c, keys[i], bodies[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// insert adds one row, reporting an existing key as ErrDuplicateKey.
// ON CONFLICT DO NOTHING keeps the stored row intact and lets RowsAffected
// tell the two cases apart without parsing driver errors.
func insert(ctx context.Context, tx *sql.Tx, op string, c schema.Collection, key string, body []byte) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO `+quoteIdent(c.Name)+` (id, body)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, key, string(body))
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return newError(CodeDuplicateKey, op, c.Name, key, errors.New("key already exists"))
	}
	return nil
}

// encodeRecord extracts the primary key from record and returns its compact
// encoding. The record must be a JSON object whose key field is a non-empty
// string.
func encodeRecord(op string, c schema.Collection, record json.RawMessage) (string, []byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return "", nil, newError(CodeInvalidRecord, op, c.Name, "", fmt.Errorf("record must be a JSON object: %w", err))
	}
	if fields == nil {
		return "", nil, newError(CodeInvalidRecord, op, c.Name, "", errors.New("record must be a JSON object"))
	}

	rawKey, ok := fields[c.KeyPath]
	if !ok {
		return "", nil, newError(CodeInvalidRecord, op, c.Name, "", fmt.Errorf("missing key field %q", c.KeyPath))
	}
	var key string
	if err := json.Unmarshal(rawKey, &key); err != nil {
		return "", nil, newError(CodeInvalidRecord, op, c.Name, "", fmt.Errorf("key field %q must be a string", c.KeyPath))
	}
	if key == "" {
		return "", nil, newError(CodeInvalidRecord, op, c.Name, "", fmt.Errorf("key field %q is empty", c.KeyPath))
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, record); err != nil {
		return "", nil, newError(CodeInvalidRecord, op, c.Name, key, err)
	}
	return key, buf.Bytes(), nil
}
