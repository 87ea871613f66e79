// Package coordinator owns the in-memory view of tours, financial entries
// and customers and funnels every mutation through the domain accessors.
//
// The database is the single source of truth. A mutation is persisted
// first; the snapshot changes only after the store accepted it, so a failed
// write never leaves the snapshot ahead of the store.
//
// Thread-safety model:
//   - Readers (Tours, Financials, Customers, Snapshot, Stale) may run from
//     any goroutine.
//   - Mutations are serialized on an internal mutex; the coordinator is the
//     single logical writer.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/sample"
	"github.com/roach88/tourdesk/internal/schema"
)

// ErrStale is returned by mutations while the snapshot is served from the
// mirror after a failed refresh.
var ErrStale = errors.New("coordinator: snapshot is stale, refresh before writing")

// Snapshot is a copy of the coordinator's collections.
type Snapshot struct {
	Tours      []agency.Tour      `json:"tours"`
	Financials []agency.Financial `json:"financials"`
	Customers  []agency.Customer  `json:"customers"`
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Tours:      slices.Clone(s.Tours),
		Financials: slices.Clone(s.Financials),
		Customers:  slices.Clone(s.Customers),
	}
}

// Coordinator holds the application state.
type Coordinator struct {
	db     *agency.DB
	loader *sample.Loader
	mirror Mirror
	now    func() time.Time
	logger *slog.Logger

	// writeMu serializes mutations and refreshes.
	writeMu sync.Mutex

	mu    sync.RWMutex
	snap  Snapshot
	stale bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMirror enables the read-through fallback mirror.
func WithMirror(m Mirror) Option {
	return func(c *Coordinator) {
		c.mirror = m
	}
}

// WithSampleLoader makes Start seed empty collections before the first
// refresh.
func WithSampleLoader(l *sample.Loader) Option {
	return func(c *Coordinator) {
		c.loader = l
	}
}

// WithClock sets the time source for projected ledger entries.
//
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// New creates a coordinator over db. Call Start before reading.
func New(db *agency.DB, opts ...Option) *Coordinator {
	c := &Coordinator{
		db:     db,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start seeds empty collections (when a sample loader is configured) and
// loads the snapshot. A loader failure is logged and does not stop the
// refresh.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.loader != nil {
		if _, err := c.loader.Load(ctx); err != nil {
			c.logger.Warn("sample data not loaded", "error", err)
		}
	}
	return c.Refresh(ctx)
}

// Refresh reloads every collection from the store. On success the mirror
// is updated. On failure the snapshot falls back to the mirror (when one is
// configured and populated), Stale reports true and the store error is
// returned.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	snap, err := c.read(ctx)
	if err != nil {
		c.fallback(err)
		return fmt.Errorf("coordinator: refresh: %w", err)
	}

	c.mu.Lock()
	c.snap = snap
	c.stale = false
	c.mu.Unlock()

	c.mirrorAll(snap)
	c.logger.Debug("snapshot refreshed",
		"tours", len(snap.Tours),
		"financials", len(snap.Financials),
		"customers", len(snap.Customers),
	)
	return nil
}

func (c *Coordinator) read(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Tours, err = c.db.ListTours(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Financials, err = c.db.ListFinancials(ctx, ""); err != nil {
		return Snapshot{}, err
	}
	if snap.Customers, err = c.db.ListCustomers(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// fallback replaces the snapshot with the mirrored copy after a failed read.
func (c *Coordinator) fallback(cause error) {
	if c.mirror == nil {
		return
	}

	var snap Snapshot
	found := false
	for _, item := range []struct {
		collection string
		into       any
	}{
		{schema.Tours, &snap.Tours},
		{schema.Financials, &snap.Financials},
		{schema.Customers, &snap.Customers},
	} {
		ok, err := c.mirror.Load(item.collection, item.into)
		if err != nil {
			c.logger.Warn("mirror unreadable", "collection", item.collection, "error", err)
			continue
		}
		found = found || ok
	}
	if !found {
		return
	}

	c.mu.Lock()
	c.snap = snap
	c.stale = true
	c.mu.Unlock()
	c.logger.Warn("serving mirrored snapshot", "error", cause)
}

func (c *Coordinator) mirrorAll(snap Snapshot) {
	c.mirrorCollection(schema.Tours, snap.Tours)
	c.mirrorCollection(schema.Financials, snap.Financials)
	c.mirrorCollection(schema.Customers, snap.Customers)
}

func (c *Coordinator) mirrorCollection(collection string, records any) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Save(collection, records); err != nil {
		c.logger.Warn("mirror not updated", "collection", collection, "error", err)
	}
}

// Stale reports whether the snapshot comes from the mirror.
func (c *Coordinator) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// Snapshot returns a copy of every collection.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.clone()
}

// Tours returns a copy of the tours snapshot.
func (c *Coordinator) Tours() []agency.Tour {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.snap.Tours)
}

// Financials returns a copy of the financial entries snapshot.
func (c *Coordinator) Financials() []agency.Financial {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.snap.Financials)
}

// Customers returns a copy of the customers snapshot.
func (c *Coordinator) Customers() []agency.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.snap.Customers)
}

// Summary totals the snapshot in currency.
func (c *Coordinator) Summary(currency string) agency.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return agency.Summarize(c.snap.Financials, c.snap.Tours, currency)
}

// beginWrite takes the writer lock and rejects writes on a stale snapshot.
// The caller must call the returned unlock.
func (c *Coordinator) beginWrite() (unlock func(), err error) {
	c.writeMu.Lock()
	if c.Stale() {
		c.writeMu.Unlock()
		return nil, ErrStale
	}
	return c.writeMu.Unlock, nil
}

// upsert replaces the element with the same id or appends v.
func upsert[T any](list []T, v T, id func(T) string) []T {
	for i := range list {
		if id(list[i]) == id(v) {
			out := slices.Clone(list)
			out[i] = v
			return out
		}
	}
	return append(slices.Clone(list), v)
}

func remove[T any](list []T, key string, id func(T) string) []T {
	return slices.DeleteFunc(slices.Clone(list), func(v T) bool { return id(v) == key })
}

func tourID(t agency.Tour) string           { return t.ID }
func financialID(f agency.Financial) string { return f.ID }
func customerID(c agency.Customer) string   { return c.ID }
