// Package store provides the SQLite-backed storage engine for tourdesk
// records.
//
// Every collection declared by the schema registry is a table holding JSON
// documents keyed by a string primary key:
//
//	CREATE TABLE <collection> (
//	    id   TEXT PRIMARY KEY,
//	    body TEXT NOT NULL CHECK (json_valid(body))
//	)
//
// Secondary indexes are expression indexes over json_extract(body, '$.field').
// They are non-unique.
//
// # Operations
//
// Add, Update, Delete, Get, GetAll, Clear, Replace, Lookup and Count each run
// inside their own transaction, which is committed or rolled back before the
// call returns. The engine never retries and never swallows errors; failures
// are *Error values carrying a Code (see errors.go).
//
// # Versioning
//
// The registry version is stored in PRAGMA user_version. Opening a database
// with an older version creates the missing tables and indexes in a single
// transaction and leaves existing rows untouched. Opening a database written
// by a newer registry fails with ErrSchemaUpgrade.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks held by other processes
//   - Single pooled connection: one logical writer
package store
