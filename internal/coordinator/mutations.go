package coordinator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/schema"
)

// SaveTourResult reports the side effects of SaveTour.
type SaveTourResult struct {
	Tour            agency.Tour        `json:"tour"`
	CreatedCustomer *agency.Customer   `json:"createdCustomer,omitempty"`
	Projected       []agency.Financial `json:"projected,omitempty"`
}

// SaveTour stores a tour and its side effects, in order:
//
//  1. When no customer has the tour's customer name and phone, a customer
//     is created from the tour's customer fields.
//  2. The tour is updated when its id is known, added otherwise.
//  3. When the tour is paid in full, every positive expense is projected
//     into the ledger once.
//
// Each step is persisted before the snapshot changes. A failing step stops
// the sequence; earlier steps stay applied.
func (c *Coordinator) SaveTour(ctx context.Context, t agency.Tour) (SaveTourResult, error) {
	unlock, err := c.beginWrite()
	if err != nil {
		return SaveTourResult{}, err
	}
	defer unlock()

	var result SaveTourResult
	touched := []string{schema.Tours}
	defer func() { c.remirror(ctx, touched...) }()

	if t.CustomerName != "" && !c.hasCustomer(t.CustomerName, t.CustomerPhone) {
		customer, err := c.db.AddCustomer(ctx, agency.Customer{
			Name:     t.CustomerName,
			Phone:    t.CustomerPhone,
			Email:    t.CustomerEmail,
			IDNumber: t.CustomerIDNumber,
			Address:  t.CustomerAddress,
		})
		if err != nil {
			return result, fmt.Errorf("coordinator: create customer: %w", err)
		}
		c.apply(func(s *Snapshot) { s.Customers = append(slices.Clone(s.Customers), customer) })
		result.CreatedCustomer = &customer
		touched = append(touched, schema.Customers)
		c.logger.Info("customer created from tour", "customer_id", customer.ID)
	}

	var saved agency.Tour
	if t.ID != "" && c.hasTour(t.ID) {
		saved, err = c.db.PutTour(ctx, t)
	} else {
		saved, err = c.db.AddTour(ctx, t)
	}
	if err != nil {
		return result, fmt.Errorf("coordinator: save tour: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Tours = upsert(s.Tours, saved, tourID) })
	result.Tour = saved

	if saved.PaymentStatus == agency.PaymentCompleted {
		projected, err := c.projectExpenses(ctx, saved)
		result.Projected = projected
		if len(projected) > 0 {
			touched = append(touched, schema.Financials)
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// projectExpenses adds a ledger entry for every positive tour expense that
// has not been projected before.
func (c *Coordinator) projectExpenses(ctx context.Context, t agency.Tour) ([]agency.Financial, error) {
	var projected []agency.Financial
	for _, e := range t.Expenses {
		if e.Amount <= 0 {
			continue
		}
		entry := ProjectExpense(t, e, c.now())
		if c.alreadyProjected(entry) {
			continue
		}

		saved, err := c.db.AddFinancial(ctx, entry)
		if err != nil {
			return projected, fmt.Errorf("coordinator: project tour expense: %w", err)
		}
		c.apply(func(s *Snapshot) { s.Financials = append(slices.Clone(s.Financials), saved) })
		projected = append(projected, saved)
	}
	if len(projected) > 0 {
		c.logger.Info("tour expenses projected to ledger", "tour_id", t.ID, "count", len(projected))
	}
	return projected, nil
}

// ProjectExpense builds the ledger entry for one tour expense.
func ProjectExpense(t agency.Tour, e agency.TourExpense, now time.Time) agency.Financial {
	category := e.Category
	if category == "" {
		category = agency.TourExpenseCategory
	}
	currency := e.Currency
	if currency == "" {
		currency = agency.DefaultCurrency
	}

	return agency.Financial{
		Type:          agency.TypeExpense,
		Date:          now.Format(time.RFC3339),
		Category:      category,
		Description:   fmt.Sprintf("%s - %s (%s)", orDefault(t.TourName, "İsimsiz Tur"), orDefault(e.Name, "Gider"), orDefault(t.SerialNumber, "No")),
		Amount:        e.Amount,
		Currency:      currency,
		PaymentMethod: "cash",
		RelatedTourID: t.ID,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (c *Coordinator) alreadyProjected(entry agency.Financial) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.ContainsFunc(c.snap.Financials, func(f agency.Financial) bool {
		return f.RelatedTourID == entry.RelatedTourID &&
			f.Description == entry.Description &&
			f.Amount == entry.Amount
	})
}

func (c *Coordinator) hasCustomer(name, phone string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.ContainsFunc(c.snap.Customers, func(cu agency.Customer) bool {
		return cu.Name == name && cu.Phone == phone
	})
}

func (c *Coordinator) hasTour(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.ContainsFunc(c.snap.Tours, func(t agency.Tour) bool { return t.ID == id })
}

func (c *Coordinator) hasFinancial(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.ContainsFunc(c.snap.Financials, func(f agency.Financial) bool { return f.ID == id })
}

func (c *Coordinator) hasCustomerID(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.ContainsFunc(c.snap.Customers, func(cu agency.Customer) bool { return cu.ID == id })
}

// apply mutates the snapshot under the snapshot lock.
func (c *Coordinator) apply(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
}

// SaveFinancial updates a known ledger entry or adds a new one.
func (c *Coordinator) SaveFinancial(ctx context.Context, f agency.Financial) (agency.Financial, error) {
	unlock, err := c.beginWrite()
	if err != nil {
		return agency.Financial{}, err
	}
	defer unlock()

	var saved agency.Financial
	if f.ID != "" && c.hasFinancial(f.ID) {
		saved, err = c.db.PutFinancial(ctx, f)
	} else {
		saved, err = c.db.AddFinancial(ctx, f)
	}
	if err != nil {
		return agency.Financial{}, fmt.Errorf("coordinator: save financial: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Financials = upsert(s.Financials, saved, financialID) })
	c.remirror(ctx, schema.Financials)
	return saved, nil
}

// SaveCustomer updates a known customer or adds a new one.
func (c *Coordinator) SaveCustomer(ctx context.Context, cu agency.Customer) (agency.Customer, error) {
	unlock, err := c.beginWrite()
	if err != nil {
		return agency.Customer{}, err
	}
	defer unlock()

	var saved agency.Customer
	if cu.ID != "" && c.hasCustomerID(cu.ID) {
		saved, err = c.db.PutCustomer(ctx, cu)
	} else {
		saved, err = c.db.AddCustomer(ctx, cu)
	}
	if err != nil {
		return agency.Customer{}, fmt.Errorf("coordinator: save customer: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Customers = upsert(s.Customers, saved, customerID) })
	c.remirror(ctx, schema.Customers)
	return saved, nil
}

// DeleteTour removes a tour. Ledger entries projected from it are kept.
func (c *Coordinator) DeleteTour(ctx context.Context, id string) error {
	unlock, err := c.beginWrite()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.db.DeleteTour(ctx, id); err != nil {
		return fmt.Errorf("coordinator: delete tour: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Tours = remove(s.Tours, id, tourID) })
	c.remirror(ctx, schema.Tours)
	return nil
}

// DeleteFinancial removes a ledger entry.
func (c *Coordinator) DeleteFinancial(ctx context.Context, id string) error {
	unlock, err := c.beginWrite()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.db.DeleteFinancial(ctx, id); err != nil {
		return fmt.Errorf("coordinator: delete financial: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Financials = remove(s.Financials, id, financialID) })
	c.remirror(ctx, schema.Financials)
	return nil
}

// DeleteCustomer removes a customer. Tours keep their embedded customer
// fields.
func (c *Coordinator) DeleteCustomer(ctx context.Context, id string) error {
	unlock, err := c.beginWrite()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.db.DeleteCustomer(ctx, id); err != nil {
		return fmt.Errorf("coordinator: delete customer: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Customers = remove(s.Customers, id, customerID) })
	c.remirror(ctx, schema.Customers)
	return nil
}

// remirror rewrites the mirror files of collections from a fresh store
// read. The snapshot is left alone.
func (c *Coordinator) remirror(ctx context.Context, collections ...string) {
	if c.mirror == nil {
		return
	}
	for _, coll := range collections {
		var records any
		var err error
		switch coll {
		case schema.Tours:
			records, err = c.db.ListTours(ctx)
		case schema.Financials:
			records, err = c.db.ListFinancials(ctx, "")
		case schema.Customers:
			records, err = c.db.ListCustomers(ctx)
		default:
			continue
		}
		if err != nil {
			c.logger.Warn("mirror not updated", "collection", coll, "error", err)
			continue
		}
		c.mirrorCollection(coll, records)
	}
}

// CommitTours replaces the stored tours with tours and reloads them.
func (c *Coordinator) CommitTours(ctx context.Context, tours []agency.Tour) error {
	unlock, err := c.beginWrite()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.db.ReplaceTours(ctx, tours); err != nil {
		return fmt.Errorf("coordinator: commit tours: %w", err)
	}
	stored, err := c.db.ListTours(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: reload tours: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Tours = stored })
	c.mirrorCollection(schema.Tours, stored)
	return nil
}

// CommitFinancials replaces the stored ledger with entries and reloads it.
func (c *Coordinator) CommitFinancials(ctx context.Context, entries []agency.Financial) error {
	unlock, err := c.beginWrite()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.db.ReplaceFinancials(ctx, entries); err != nil {
		return fmt.Errorf("coordinator: commit financials: %w", err)
	}
	stored, err := c.db.ListFinancials(ctx, "")
	if err != nil {
		return fmt.Errorf("coordinator: reload financials: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Financials = stored })
	c.mirrorCollection(schema.Financials, stored)
	return nil
}

// CommitCustomers replaces the stored customers with customers and reloads
// them.
func (c *Coordinator) CommitCustomers(ctx context.Context, customers []agency.Customer) error {
	unlock, err := c.beginWrite()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.db.ReplaceCustomers(ctx, customers); err != nil {
		return fmt.Errorf("coordinator: commit customers: %w", err)
	}
	stored, err := c.db.ListCustomers(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: reload customers: %w", err)
	}
	c.apply(func(s *Snapshot) { s.Customers = stored })
	c.mirrorCollection(schema.Customers, stored)
	return nil
}
