package schema

import (
	"fmt"
	"regexp"
)

// Collection names. These double as SQLite table names.
const (
	Tours           = "tours"
	Financials      = "financials"
	Customers       = "customers"
	Settings        = "settings"
	ExpenseTypes    = "expenses"
	Providers       = "providers"
	Activities      = "activities"
	Destinations    = "destinations"
	AIConversations = "ai_conversations"
	CustomerNotes   = "customer_notes"
)

// DatabaseName and Version identify the persisted layout.
// Bump Version whenever a collection or index is added.
const (
	DatabaseName = "tourdesk"
	Version      = 1
)

var (
	collectionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	fieldNamePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Collection declares one named record set: its primary key field and the
// non-unique secondary lookup fields.
type Collection struct {
	Name    string
	KeyPath string
	Indexes []string
}

// HasIndex reports whether field is a declared secondary index.
func (c Collection) HasIndex(field string) bool {
	for _, idx := range c.Indexes {
		if idx == field {
			return true
		}
	}
	return false
}

// Registry is the static description of the database the storage engine
// materializes at open time.
type Registry struct {
	Name        string
	Version     int
	Collections []Collection
}

var defaultCollections = []Collection{
	{Name: Tours, KeyPath: "id", Indexes: []string{"customerName", "tourDate"}},
	{Name: Financials, KeyPath: "id", Indexes: []string{"date", "type"}},
	{Name: Customers, KeyPath: "id", Indexes: []string{"name", "phone"}},
	{Name: Settings, KeyPath: "id"},
	{Name: ExpenseTypes, KeyPath: "id", Indexes: []string{"type", "name"}},
	{Name: Providers, KeyPath: "id", Indexes: []string{"name"}},
	{Name: Activities, KeyPath: "id", Indexes: []string{"name"}},
	{Name: Destinations, KeyPath: "id", Indexes: []string{"name", "country"}},
	{Name: AIConversations, KeyPath: "id", Indexes: []string{"timestamp"}},
	{Name: CustomerNotes, KeyPath: "id", Indexes: []string{"customerId", "timestamp"}},
}

// Default returns the registry for the current schema version.
func Default() Registry {
	cols := make([]Collection, len(defaultCollections))
	for i, c := range defaultCollections {
		c.Indexes = append([]string(nil), c.Indexes...)
		cols[i] = c
	}
	return Registry{Name: DatabaseName, Version: Version, Collections: cols}
}

// Lookup finds a collection by name.
func (r Registry) Lookup(name string) (Collection, bool) {
	for _, c := range r.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// Names returns the collection names in declaration order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.Collections))
	for _, c := range r.Collections {
		names = append(names, c.Name)
	}
	return names
}

// Validate checks that the registry can be materialized: identifiers are
// safe to embed in DDL, names are unique and every collection has a key.
func (r Registry) Validate() error {
	if r.Version < 1 {
		return fmt.Errorf("registry %q: version must be >= 1, got %d", r.Name, r.Version)
	}
	seen := make(map[string]struct{}, len(r.Collections))
	for _, c := range r.Collections {
		if !collectionNamePattern.MatchString(c.Name) {
			return fmt.Errorf("registry %q: invalid collection name %q", r.Name, c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("registry %q: duplicate collection %q", r.Name, c.Name)
		}
		seen[c.Name] = struct{}{}

		if !fieldNamePattern.MatchString(c.KeyPath) {
			return fmt.Errorf("collection %q: invalid key path %q", c.Name, c.KeyPath)
		}
		for _, idx := range c.Indexes {
			if !fieldNamePattern.MatchString(idx) {
				return fmt.Errorf("collection %q: invalid index field %q", c.Name, idx)
			}
		}
	}
	return nil
}
