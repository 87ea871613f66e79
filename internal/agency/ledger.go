package agency

import (
	"context"
	"time"

	"github.com/roach88/tourdesk/internal/schema"
)

// Tours

// AddTour inserts a new tour, assigning an id when t has none. CreatedAt
// and UpdatedAt are stamped when unset.
func (db *DB) AddTour(ctx context.Context, t Tour) (Tour, error) {
	stamp(&t.CreatedAt, &t.UpdatedAt, db.now())
	return addAs(ctx, db, schema.Tours, t)
}

// PutTour inserts or replaces a tour. A tour without an id gets one.
func (db *DB) PutTour(ctx context.Context, t Tour) (Tour, error) {
	if t.ID == "" {
		t.ID = db.ids.NewID()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt, db.now())
	return putAs(ctx, db, schema.Tours, t)
}

// GetTour returns the tour with id.
func (db *DB) GetTour(ctx context.Context, id string) (Tour, bool, error) {
	return getAs[Tour](ctx, db, schema.Tours, id)
}

// ListTours returns every tour ordered by id.
func (db *DB) ListTours(ctx context.Context) ([]Tour, error) {
	return listAs[Tour](ctx, db, schema.Tours)
}

// ToursOn returns the tours starting on date (YYYY-MM-DD).
func (db *DB) ToursOn(ctx context.Context, date string) ([]Tour, error) {
	return findAs[Tour](ctx, db, schema.Tours, "tourDate", date)
}

// ToursFor returns the tours booked under customerName.
func (db *DB) ToursFor(ctx context.Context, customerName string) ([]Tour, error) {
	return findAs[Tour](ctx, db, schema.Tours, "customerName", customerName)
}

// DeleteTour removes the tour with id.
func (db *DB) DeleteTour(ctx context.Context, id string) error {
	return db.Delete(ctx, schema.Tours, id)
}

// ReplaceTours makes the tours collection hold exactly tours.
func (db *DB) ReplaceTours(ctx context.Context, tours []Tour) error {
	return replaceAs(ctx, db, schema.Tours, tours)
}

// Financials

// AddFinancial inserts a new ledger entry.
func (db *DB) AddFinancial(ctx context.Context, f Financial) (Financial, error) {
	stamp(&f.CreatedAt, &f.UpdatedAt, db.now())
	return addAs(ctx, db, schema.Financials, f)
}

// PutFinancial inserts or replaces a ledger entry.
func (db *DB) PutFinancial(ctx context.Context, f Financial) (Financial, error) {
	if f.ID == "" {
		f.ID = db.ids.NewID()
	}
	stamp(&f.CreatedAt, &f.UpdatedAt, db.now())
	return putAs(ctx, db, schema.Financials, f)
}

// GetFinancial returns the ledger entry with id.
func (db *DB) GetFinancial(ctx context.Context, id string) (Financial, bool, error) {
	return getAs[Financial](ctx, db, schema.Financials, id)
}

// ListFinancials returns ledger entries ordered by id. A non-empty typ
// ("income" or "expense") restricts the result through the type index.
func (db *DB) ListFinancials(ctx context.Context, typ string) ([]Financial, error) {
	if typ != "" {
		return findAs[Financial](ctx, db, schema.Financials, "type", typ)
	}
	return listAs[Financial](ctx, db, schema.Financials)
}

// DeleteFinancial removes the ledger entry with id.
func (db *DB) DeleteFinancial(ctx context.Context, id string) error {
	return db.Delete(ctx, schema.Financials, id)
}

// ReplaceFinancials makes the financials collection hold exactly entries.
func (db *DB) ReplaceFinancials(ctx context.Context, entries []Financial) error {
	return replaceAs(ctx, db, schema.Financials, entries)
}

// Customers

// AddCustomer inserts a new customer.
func (db *DB) AddCustomer(ctx context.Context, c Customer) (Customer, error) {
	return addAs(ctx, db, schema.Customers, c)
}

// PutCustomer inserts or replaces a customer.
func (db *DB) PutCustomer(ctx context.Context, c Customer) (Customer, error) {
	if c.ID == "" {
		c.ID = db.ids.NewID()
	}
	return putAs(ctx, db, schema.Customers, c)
}

// GetCustomer returns the customer with id.
func (db *DB) GetCustomer(ctx context.Context, id string) (Customer, bool, error) {
	return getAs[Customer](ctx, db, schema.Customers, id)
}

// ListCustomers returns every customer ordered by id.
func (db *DB) ListCustomers(ctx context.Context) ([]Customer, error) {
	return listAs[Customer](ctx, db, schema.Customers)
}

// CustomersByPhone returns the customers registered with phone.
func (db *DB) CustomersByPhone(ctx context.Context, phone string) ([]Customer, error) {
	return findAs[Customer](ctx, db, schema.Customers, "phone", phone)
}

// DeleteCustomer removes the customer with id.
func (db *DB) DeleteCustomer(ctx context.Context, id string) error {
	return db.Delete(ctx, schema.Customers, id)
}

// ReplaceCustomers makes the customers collection hold exactly customers.
func (db *DB) ReplaceCustomers(ctx context.Context, customers []Customer) error {
	return replaceAs(ctx, db, schema.Customers, customers)
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
