package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/tourdesk/internal/schema"
)

// upgrade brings the database layout up to reg.Version.
//
// Schema version tracking lives in PRAGMA user_version:
//
//	0 - fresh file, nothing materialized
//	N - every collection and index of registry version N exists
//
// Only missing tables and indexes are created, so collections untouched by a
// registry change keep their rows.
func upgrade(db *sql.DB, reg schema.Registry) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return newError(CodeSchemaUpgrade, "open", "", "", fmt.Errorf("get user_version: %w", err))
	}

	if current > reg.Version {
		return newError(CodeSchemaUpgrade, "open", "", "",
			fmt.Errorf("database version %d is newer than schema version %d", current, reg.Version))
	}
	if current == reg.Version {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return newError(CodeSchemaUpgrade, "open", "", "", fmt.Errorf("begin upgrade: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	for _, c := range reg.Collections {
		if err := materialize(tx, c); err != nil {
			return newError(CodeSchemaUpgrade, "open", c.Name, "", err)
		}
	}

	// PRAGMA does not accept bound parameters; Version is an int.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", reg.Version)); err != nil {
		return newError(CodeSchemaUpgrade, "open", "", "", fmt.Errorf("set user_version: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return newError(CodeSchemaUpgrade, "open", "", "", fmt.Errorf("commit upgrade: %w", err))
	}

	slog.Info("database schema upgraded",
		"database", reg.Name,
		"from_version", current,
		"to_version", reg.Version,
	)
	return nil
}

// materialize creates the table and secondary indexes for one collection if
// they do not exist yet.
func materialize(tx *sql.Tx, c schema.Collection) error {
	table := quoteIdent(c.Name)

	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS ` + table + ` (
		id   TEXT PRIMARY KEY,
		body TEXT NOT NULL CHECK (json_valid(body))
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	for _, field := range c.Indexes {
		stmt := `CREATE INDEX IF NOT EXISTS ` + quoteIdent(indexName(c.Name, field)) +
			` ON ` + table + ` (` + indexExpr(field) + `)`
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create index %s: %w", field, err)
		}
	}
	return nil
}

func indexName(collection, field string) string {
	return "idx_" + collection + "_" + field
}

// indexExpr is the expression shared by index DDL and Lookup queries; SQLite
// only uses an expression index when the query repeats it verbatim.
func indexExpr(field string) string {
	return "json_extract(body, '$." + field + "')"
}
