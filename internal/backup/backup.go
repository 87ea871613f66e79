// Package backup exports every collection to a single JSON or YAML document
// and restores such a document into a database.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/store"
)

// Format selects the document encoding.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("backup: unsupported format %q", s)
}

// Record is one stored record in decoded form.
type Record = map[string]any

// Document is the backup file layout. Version is the registry version of
// the database the document was exported from.
type Document struct {
	Version     int                 `json:"version" yaml:"version"`
	ExportedAt  string              `json:"exportedAt" yaml:"exportedAt"`
	Collections map[string][]Record `json:"collections" yaml:"collections"`
}

// Export writes every registry collection of db to w. now stamps the
// document.
func Export(ctx context.Context, db *agency.DB, w io.Writer, format Format, now time.Time) error {
	doc, err := Snapshot(ctx, db, now)
	if err != nil {
		return err
	}
	return Encode(w, doc, format)
}

// Snapshot reads every registry collection of db into a document.
func Snapshot(ctx context.Context, db *agency.DB, now time.Time) (Document, error) {
	reg := db.Store().Registry()
	doc := Document{
		Version:     reg.Version,
		ExportedAt:  now.UTC().Format(time.RFC3339),
		Collections: make(map[string][]Record, len(reg.Collections)),
	}
	for _, name := range reg.Names() {
		raw, err := db.GetAll(ctx, name)
		if err != nil {
			return Document{}, fmt.Errorf("backup: read %s: %w", name, err)
		}
		records := make([]Record, 0, len(raw))
		for _, r := range raw {
			var rec Record
			if err := json.Unmarshal(r, &rec); err != nil {
				return Document{}, fmt.Errorf("backup: decode %s record: %w", name, err)
			}
			records = append(records, rec)
		}
		doc.Collections[name] = records
	}
	return doc, nil
}

// Encode writes doc to w in format.
func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("backup: unsupported format %q", format)
}

// Decode reads a document from r.
func Decode(r io.Reader, format Format) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("backup: read: %w", err)
	}

	var doc Document
	switch format {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&doc)
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return Document{}, fmt.Errorf("backup: unsupported format %q", format)
	}
	if err != nil {
		return Document{}, fmt.Errorf("backup: parse %s: %w", format, err)
	}
	return doc, nil
}

// Import restores the document read from r into db and returns the number
// of records written per collection.
//
// The document version and every collection name are checked before
// anything is written. Each collection present in the document is then
// replaced atomically; collections absent from the document are left
// alone. A record rejected by validation stops the import at that
// collection.
func Import(ctx context.Context, db *agency.DB, r io.Reader, format Format) (map[string]int, error) {
	doc, err := Decode(r, format)
	if err != nil {
		return nil, err
	}
	return Restore(ctx, db, doc)
}

// Restore writes doc into db. See Import.
func Restore(ctx context.Context, db *agency.DB, doc Document) (map[string]int, error) {
	reg := db.Store().Registry()
	if doc.Version > reg.Version {
		return nil, &store.Error{
			Code: store.CodeSchemaUpgrade,
			Op:   "import",
			Err:  fmt.Errorf("backup version %d is newer than database version %d", doc.Version, reg.Version),
		}
	}
	for name := range doc.Collections {
		if _, ok := reg.Lookup(name); !ok {
			return nil, &store.Error{
				Code:       store.CodeUnknownCollection,
				Op:         "import",
				Collection: name,
				Err:        fmt.Errorf("collection %q is not declared", name),
			}
		}
	}

	written := make(map[string]int, len(doc.Collections))
	for _, name := range reg.Names() {
		records, ok := doc.Collections[name]
		if !ok {
			continue
		}
		raw := make([]json.RawMessage, len(records))
		for i, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return written, fmt.Errorf("backup: encode %s record: %w", name, err)
			}
			raw[i] = data
		}
		if err := db.Replace(ctx, name, raw); err != nil {
			return written, fmt.Errorf("backup: restore %s: %w", name, err)
		}
		written[name] = len(raw)
	}
	return written, nil
}
