// Package sample seeds an empty database with the bundled example datasets.
//
// Load is safe to run on every start: a collection that already holds
// records is left alone, so the datasets are only written on first run.
package sample

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tourdesk/internal/agency"
	"github.com/roach88/tourdesk/internal/schema"
)

//go:embed data/*.json
var embedded embed.FS

// Dataset file names, relative to the loader's file system.
const (
	FinanceFile      = "sample-finance.json"
	ToursFile        = "sample-tours.json"
	ActivitiesFile   = "sample-activities.json"
	DestinationsFile = "sample-destinations.json"
	SettingsFile     = "sample-settings.json"
)

// Datasets returns the bundled datasets.
func Datasets() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(fmt.Sprintf("sample: embedded data: %v", err))
	}
	return sub
}

// Report describes what one Load call wrote.
type Report struct {
	Financials   int      `json:"financials"`
	Tours        int      `json:"tours"`
	Customers    int      `json:"customers"`
	Activities   int      `json:"activities"`
	Destinations int      `json:"destinations"`
	Settings     bool     `json:"settings"`
	Skipped      []string `json:"skipped,omitempty"`
}

// Total returns the number of records written.
func (r Report) Total() int {
	n := r.Financials + r.Tours + r.Customers + r.Activities + r.Destinations
	if r.Settings {
		n++
	}
	return n
}

// Loader writes datasets through the domain accessors.
type Loader struct {
	db     *agency.DB
	fsys   fs.FS
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS replaces the bundled datasets. Files missing from fsys are skipped.
func WithFS(fsys fs.FS) Option {
	return func(l *Loader) {
		l.fsys = fsys
	}
}

// WithLogger sets the logger. Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader writing to db.
func New(db *agency.DB, opts ...Option) *Loader {
	l := &Loader{db: db, fsys: Datasets(), logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load seeds every empty collection that has a dataset. Collections with
// records are recorded in Report.Skipped.
func (l *Loader) Load(ctx context.Context) (Report, error) {
	var report Report

	steps := []struct {
		collection string
		load       func(context.Context) (int, error)
		count      *int
	}{
		{schema.Financials, l.loadFinancials, &report.Financials},
		{schema.Tours, l.loadTours, &report.Tours},
		{schema.Customers, l.loadCustomers, &report.Customers},
		{schema.Activities, l.loadList(ActivitiesFile, schema.Activities), &report.Activities},
		{schema.Destinations, l.loadList(DestinationsFile, schema.Destinations), &report.Destinations},
	}

	for _, step := range steps {
		empty, err := l.isEmpty(ctx, step.collection)
		if err != nil {
			return report, err
		}
		if !empty {
			report.Skipped = append(report.Skipped, step.collection)
			continue
		}
		n, err := step.load(ctx)
		if err != nil {
			return report, fmt.Errorf("sample: load %s: %w", step.collection, err)
		}
		*step.count = n
	}

	loaded, err := l.loadSettings(ctx)
	if err != nil {
		return report, fmt.Errorf("sample: load settings: %w", err)
	}
	report.Settings = loaded
	if !loaded {
		report.Skipped = append(report.Skipped, schema.Settings)
	}

	l.logger.Info("sample data loaded",
		"financials", report.Financials,
		"tours", report.Tours,
		"customers", report.Customers,
		"activities", report.Activities,
		"destinations", report.Destinations,
		"settings", report.Settings,
		"skipped", strings.Join(report.Skipped, ","),
	)
	return report, nil
}

func (l *Loader) isEmpty(ctx context.Context, collection string) (bool, error) {
	n, err := l.db.Store().Count(ctx, collection)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// readFile decodes a dataset into v. A missing file reports ok == false.
func (l *Loader) readFile(name string, v any) (ok bool, err error) {
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("sample dataset missing", "file", name)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func (l *Loader) loadFinancials(ctx context.Context) (int, error) {
	var finance struct {
		Expenses []map[string]any `json:"expenses"`
		Incomes  []map[string]any `json:"incomes"`
	}
	ok, err := l.readFile(FinanceFile, &finance)
	if err != nil || !ok {
		return 0, err
	}

	records := make([]json.RawMessage, 0, len(finance.Expenses)+len(finance.Incomes))
	tag := func(entries []map[string]any, typ string) error {
		for _, e := range entries {
			e["type"] = typ
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			records = append(records, data)
		}
		return nil
	}
	if err := tag(finance.Expenses, agency.TypeExpense); err != nil {
		return 0, err
	}
	if err := tag(finance.Incomes, agency.TypeIncome); err != nil {
		return 0, err
	}

	if err := l.db.Replace(ctx, schema.Financials, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (l *Loader) loadTours(ctx context.Context) (int, error) {
	var tours []json.RawMessage
	ok, err := l.readFile(ToursFile, &tours)
	if err != nil || !ok {
		return 0, err
	}
	if err := l.db.Replace(ctx, schema.Tours, tours); err != nil {
		return 0, err
	}
	return len(tours), nil
}

// loadCustomers derives customers from the tours dataset. The customer key
// is the phone number, else the e-mail address, else a generated id;
// tours sharing a key yield one customer.
func (l *Loader) loadCustomers(ctx context.Context) (int, error) {
	var tours []agency.Tour
	ok, err := l.readFile(ToursFile, &tours)
	if err != nil || !ok {
		return 0, err
	}

	customers := CustomersFromTours(tours)
	if err := l.db.ReplaceCustomers(ctx, customers); err != nil {
		return 0, err
	}
	return len(customers), nil
}

// CustomersFromTours extracts one customer per distinct key. Customers
// without phone or e-mail are returned without an id.
func CustomersFromTours(tours []agency.Tour) []agency.Customer {
	seen := make(map[string]bool)
	var customers []agency.Customer
	for _, t := range tours {
		if t.CustomerName == "" && t.CustomerPhone == "" && t.CustomerEmail == "" {
			continue
		}
		key := CustomerKey(t.CustomerPhone, t.CustomerEmail)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		customers = append(customers, agency.Customer{
			ID:       key,
			Name:     t.CustomerName,
			Phone:    t.CustomerPhone,
			Email:    t.CustomerEmail,
			IDNumber: t.CustomerIDNumber,
			Address:  t.CustomerAddress,
		})
	}
	return customers
}

// CustomerKey returns the NFC-normalized phone, else e-mail, or "" when
// both are blank.
func CustomerKey(phone, email string) string {
	if k := strings.TrimSpace(phone); k != "" {
		return norm.NFC.String(k)
	}
	if k := strings.TrimSpace(email); k != "" {
		return norm.NFC.String(k)
	}
	return ""
}

func (l *Loader) loadList(file, collection string) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		var items []json.RawMessage
		ok, err := l.readFile(file, &items)
		if err != nil || !ok {
			return 0, err
		}
		if err := l.db.Replace(ctx, collection, items); err != nil {
			return 0, err
		}
		return len(items), nil
	}
}

// loadSettings writes the settings dataset when no application settings
// exist yet.
func (l *Loader) loadSettings(ctx context.Context) (bool, error) {
	_, exists, err := l.db.GetByID(ctx, schema.Settings, agency.AppSettingsID)
	if err != nil || exists {
		return false, err
	}

	var settings agency.AppSettings
	ok, err := l.readFile(SettingsFile, &settings)
	if err != nil || !ok {
		return false, err
	}
	if _, err := l.db.SaveSettings(ctx, settings); err != nil {
		return false, err
	}
	return true, nil
}
