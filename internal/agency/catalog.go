package agency

import (
	"context"

	"github.com/roach88/tourdesk/internal/schema"
)

// Catalog lists are saved whole: the collection ends up holding exactly
// the supplied items, deletions included.

// SaveExpenseTypes replaces the expense-type catalog.
func (db *DB) SaveExpenseTypes(ctx context.Context, items []ExpenseType) error {
	return replaceAs(ctx, db, schema.ExpenseTypes, items)
}

// GetExpenseTypes returns the expense-type catalog. A non-empty typ keeps
// only entries of that type.
func (db *DB) GetExpenseTypes(ctx context.Context, typ string) ([]ExpenseType, error) {
	all, err := listAs[ExpenseType](ctx, db, schema.ExpenseTypes)
	if err != nil || typ == "" {
		return all, err
	}
	filtered := make([]ExpenseType, 0, len(all))
	for _, e := range all {
		if e.Type == typ {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// SaveProviders replaces the provider list.
func (db *DB) SaveProviders(ctx context.Context, items []Provider) error {
	return replaceAs(ctx, db, schema.Providers, items)
}

// GetProviders returns every provider.
func (db *DB) GetProviders(ctx context.Context) ([]Provider, error) {
	return listAs[Provider](ctx, db, schema.Providers)
}

// SaveActivities replaces the activity catalog.
func (db *DB) SaveActivities(ctx context.Context, items []Activity) error {
	return replaceAs(ctx, db, schema.Activities, items)
}

// GetActivities returns every activity.
func (db *DB) GetActivities(ctx context.Context) ([]Activity, error) {
	return listAs[Activity](ctx, db, schema.Activities)
}

// SaveDestinations replaces the destination catalog.
func (db *DB) SaveDestinations(ctx context.Context, items []Destination) error {
	return replaceAs(ctx, db, schema.Destinations, items)
}

// GetDestinations returns every destination.
func (db *DB) GetDestinations(ctx context.Context) ([]Destination, error) {
	return listAs[Destination](ctx, db, schema.Destinations)
}
