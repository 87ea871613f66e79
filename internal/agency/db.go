package agency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tourdesk/internal/ident"
	"github.com/roach88/tourdesk/internal/schema"
	"github.com/roach88/tourdesk/internal/store"
)

// DB is the accessor set every consumer is built against. It wraps one
// storage engine and adds identifier assignment, timestamping and record
// validation.
//
// Thread-safety: DB is safe for concurrent use. Ordering between concurrent
// writes to the same collection is the caller's concern.
type DB struct {
	store     *store.Store
	ids       ident.Generator
	now       func() time.Time
	validator *schema.Validator
	logger    *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithIDGenerator sets the generator used for records saved without an id.
//
// Default: ident.UUIDGenerator
func WithIDGenerator(g ident.Generator) Option {
	return func(db *DB) {
		db.ids = g
	}
}

// WithClock sets the time source for timestamps.
//
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = l
	}
}

// Open opens the database at path with the default registry.
func Open(path string, opts ...Option) (*DB, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	db, err := New(s, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an open store. The DB takes ownership of s; Close closes it.
func New(s *store.Store, opts ...Option) (*DB, error) {
	v, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("agency: %w", err)
	}

	db := &DB{
		store:     s,
		ids:       ident.Default,
		now:       time.Now,
		validator: v,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.store.Close()
}

// Store returns the underlying storage engine.
func (db *DB) Store() *store.Store {
	return db.store
}

// Initialize checks that the database is reachable and at the registry
// version. Open already materializes the layout, so this is cheap.
func (db *DB) Initialize(ctx context.Context) error {
	v, err := db.store.Version(ctx)
	if err != nil {
		return err
	}
	if want := db.store.Registry().Version; v != want {
		return &store.Error{
			Code: store.CodeSchemaUpgrade,
			Op:   "initialize",
			Err:  fmt.Errorf("database version %d, want %d", v, want),
		}
	}
	return nil
}

// Add inserts record into collection, assigning an id when the record has
// none. Returns the stored record.
func (db *DB) Add(ctx context.Context, collection string, record json.RawMessage) (json.RawMessage, error) {
	record, err := db.prepare("add", collection, record, true)
	if err != nil {
		return nil, err
	}
	return db.store.Add(ctx, collection, record)
}

// Update inserts or replaces record by key. The record must carry its id.
func (db *DB) Update(ctx context.Context, collection string, record json.RawMessage) (json.RawMessage, error) {
	record, err := db.prepare("update", collection, record, false)
	if err != nil {
		return nil, err
	}
	return db.store.Update(ctx, collection, record)
}

// Delete removes the record with key. Absent keys are not an error.
func (db *DB) Delete(ctx context.Context, collection, key string) error {
	return db.store.Delete(ctx, collection, key)
}

// GetAll returns every record of collection ordered by key.
func (db *DB) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	return db.store.GetAll(ctx, collection)
}

// GetByID returns the record with key; ok is false when it is absent.
func (db *DB) GetByID(ctx context.Context, collection, key string) (record json.RawMessage, ok bool, err error) {
	return db.store.Get(ctx, collection, key)
}

// Clear removes every record of collection.
func (db *DB) Clear(ctx context.Context, collection string) error {
	return db.store.Clear(ctx, collection)
}

// Find returns the records whose indexed field equals value.
func (db *DB) Find(ctx context.Context, collection, field string, value any) ([]json.RawMessage, error) {
	return db.store.Lookup(ctx, collection, field, value)
}

// Replace makes collection hold exactly records, assigning ids where
// missing. The swap is atomic.
func (db *DB) Replace(ctx context.Context, collection string, records []json.RawMessage) error {
	prepared := make([]json.RawMessage, len(records))
	for i, r := range records {
		p, err := db.prepare("replace", collection, r, true)
		if err != nil {
			return err
		}
		prepared[i] = p
	}
	if err := db.store.Replace(ctx, collection, prepared); err != nil {
		return err
	}
	db.logger.Debug("collection replaced", "collection", collection, "count", len(prepared))
	return nil
}

// prepare assigns a missing id (when assign is set) and validates the
// record against its collection definition.
func (db *DB) prepare(op, collection string, record json.RawMessage, assign bool) (json.RawMessage, error) {
	c, ok := db.store.Registry().Lookup(collection)
	if !ok {
		// The engine reports the unknown collection.
		return record, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil || fields == nil {
		if err == nil {
			err = errors.New("record must be a JSON object")
		}
		return nil, invalid(op, collection, "", err)
	}

	_, present := fields[c.KeyPath]
	key, isString := stringField(fields, c.KeyPath)
	if assign && (!present || (isString && key == "")) {
		key = db.ids.NewID()
		encoded, err := json.Marshal(key)
		if err != nil {
			return nil, invalid(op, collection, "", err)
		}
		fields[c.KeyPath] = encoded
		record, err = json.Marshal(fields)
		if err != nil {
			return nil, invalid(op, collection, key, err)
		}
	}

	if err := db.validator.Validate(collection, record); err != nil {
		return nil, invalid(op, collection, key, err)
	}
	return record, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func invalid(op, collection, key string, err error) error {
	return &store.Error{Code: store.CodeInvalidRecord, Op: op, Collection: collection, Key: key, Err: err}
}
