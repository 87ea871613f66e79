package agency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tourdesk/internal/ident"
	"github.com/roach88/tourdesk/internal/schema"
	"github.com/roach88/tourdesk/internal/store"
	"github.com/roach88/tourdesk/internal/testutil"
)

// newTestDB opens a fresh database with deterministic ids and clock.
func newTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	defaults := []Option{
		WithIDGenerator(ident.NewSequenceGenerator("gen")),
		WithClock(testutil.NewFixedClock().Now),
	}
	db, err := Open(filepath.Join(t.TempDir(), "agency.db"), append(defaults, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitialize(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Initialize(context.Background()))
}

func TestOpen_StorageUnavailable(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
}

// Scenario A: a fresh database starts empty and returns exactly what was added.
func TestScenario_AddThenGetAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	all, err := db.GetAll(ctx, schema.Tours)
	require.NoError(t, err)
	assert.Empty(t, all)

	rec := json.RawMessage(`{"id":"t1","tourName":"City Tour","tourDate":"2024-01-10","totalPrice":500,"currency":"TRY"}`)
	_, err = db.Add(ctx, schema.Tours, rec)
	require.NoError(t, err)

	all, err = db.GetAll(ctx, schema.Tours)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, string(rec), string(all[0]))
}

func TestAdd_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	records := map[string]string{
		schema.Customers:    `{"id":"c1","name":"Ada","phone":"555","extra":{"nested":[1,2]}}`,
		schema.Financials:   `{"id":"f1","type":"income","amount":12.5,"currency":"USD"}`,
		schema.Providers:    `{"id":"p1","name":"Kapadokya Balon"}`,
		schema.Destinations: `{"id":"d1","name":"Göreme","country":"Türkiye"}`,
	}
	for collection, rec := range records {
		_, err := db.Add(ctx, collection, json.RawMessage(rec))
		require.NoError(t, err, collection)

		var key struct{ ID string }
		require.NoError(t, json.Unmarshal([]byte(rec), &key))

		got, ok, err := db.GetByID(ctx, collection, key.ID)
		require.NoError(t, err)
		require.True(t, ok, collection)
		assert.JSONEq(t, rec, string(got), collection)
	}
}

func TestAdd_AssignsMissingID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, rec := range []string{`{"name":"Ada"}`, `{"id":"","name":"Bob"}`, `{"id":null,"name":"Cem"}`} {
		_, err := db.Add(ctx, schema.Customers, json.RawMessage(rec))
		require.NoError(t, err, rec)
	}

	all, err := db.GetAll(ctx, schema.Customers)
	require.NoError(t, err)
	var keys []string
	for _, r := range all {
		var c Customer
		require.NoError(t, json.Unmarshal(r, &c))
		keys = append(keys, c.ID)
	}
	assert.Equal(t, []string{"gen-1", "gen-2", "gen-3"}, keys)
}

func TestAdd_GeneratedIDIsUUID(t *testing.T) {
	db := newTestDB(t, WithIDGenerator(ident.UUIDGenerator{}))

	stored, err := db.Add(context.Background(), schema.Providers, json.RawMessage(`{"name":"Rehber"}`))
	require.NoError(t, err)

	var p Provider
	require.NoError(t, json.Unmarshal(stored, &p))
	assert.True(t, ident.Valid(p.ID), "id %q", p.ID)
}

func TestAdd_DuplicateKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Add(ctx, schema.Customers, json.RawMessage(`{"id":"c1","name":"first"}`))
	require.NoError(t, err)

	_, err = db.Add(ctx, schema.Customers, json.RawMessage(`{"id":"c1","name":"second"}`))
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	got, _, err := db.GetByID(ctx, schema.Customers, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","name":"first"}`, string(got))
}

func TestAdd_RejectsInvalidRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		collection string
		record     string
	}{
		{"financial without type", schema.Financials, `{"id":"f1","amount":10}`},
		{"financial with unknown type", schema.Financials, `{"id":"f1","type":"refund"}`},
		{"tour without date", schema.Tours, `{"id":"t1","tourName":"x"}`},
		{"tour with negative people", schema.Tours, `{"id":"t1","tourDate":"2024-01-10","numberOfPeople":-1}`},
		{"note without customer", schema.CustomerNotes, `{"id":"n1","content":"x","timestamp":"2024-01-10T09:00:00Z"}`},
		{"conversation with bad timestamp", schema.AIConversations, `{"id":"a1","messages":[],"timestamp":"yesterday"}`},
		{"not an object", schema.Customers, `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Add(ctx, tt.collection, json.RawMessage(tt.record))
			require.Error(t, err)
			assert.ErrorIs(t, err, store.ErrInvalidRecord)
			assert.Equal(t, store.CodeInvalidRecord, store.CodeOf(err))

			n, err := db.Store().Count(ctx, tt.collection)
			require.NoError(t, err)
			assert.Zero(t, n, "rejected record must not be stored")
		})
	}
}

func TestAdd_ValidationErrorCarriesSchemaSentinel(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Add(context.Background(), schema.Financials, json.RawMessage(`{"id":"f1"}`))
	assert.ErrorIs(t, err, schema.ErrInvalidRecord)
}

func TestAdd_UnknownCollection(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Add(context.Background(), "bookings", json.RawMessage(`{"id":"b1"}`))
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}

// Scenario B: update replaces the record under the same key.
func TestScenario_UpdateCustomer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Add(ctx, schema.Customers, json.RawMessage(`{"id":"c1","name":"Ada","phone":"555"}`))
	require.NoError(t, err)
	_, err = db.Update(ctx, schema.Customers, json.RawMessage(`{"id":"c1","name":"Ada Lovelace","phone":"555"}`))
	require.NoError(t, err)

	got, ok, err := db.GetByID(ctx, schema.Customers, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"c1","name":"Ada Lovelace","phone":"555"}`, string(got))
}

func TestUpdate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := json.RawMessage(`{"id":"f1","type":"expense","amount":40,"currency":"EUR"}`)

	_, err := db.Update(ctx, schema.Financials, rec)
	require.NoError(t, err)
	once, err := db.GetAll(ctx, schema.Financials)
	require.NoError(t, err)

	_, err = db.Update(ctx, schema.Financials, rec)
	require.NoError(t, err)
	twice, err := db.GetAll(ctx, schema.Financials)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestUpdate_RequiresID(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Update(context.Background(), schema.Customers, json.RawMessage(`{"name":"Ada"}`))
	assert.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestDelete_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Add(ctx, schema.Providers, json.RawMessage(`{"id":"p1"}`))
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, schema.Providers, "p1"))
	require.NoError(t, db.Delete(ctx, schema.Providers, "p1"))

	_, ok, err := db.GetByID(ctx, schema.Providers, "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Scenario D: deleting from an empty collection is not an error.
func TestScenario_DeleteMissingFinancial(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Delete(context.Background(), schema.Financials, "nonexistent-id"))
}

func TestClear_Complete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := db.Add(ctx, schema.Activities, json.RawMessage(`{"name":"x"}`))
		require.NoError(t, err)
	}
	require.NoError(t, db.Clear(ctx, schema.Activities))

	all, err := db.GetAll(ctx, schema.Activities)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestReplace_SetEqual(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Add(ctx, schema.Destinations, json.RawMessage(`{"id":"old","name":"Eski"}`))
	require.NoError(t, err)

	list := []json.RawMessage{
		json.RawMessage(`{"id":"d2","name":"Efes"}`),
		json.RawMessage(`{"name":"Pamukkale"}`),
		json.RawMessage(`{"id":"d1","name":"Göreme"}`),
	}
	require.NoError(t, db.Replace(ctx, schema.Destinations, list))

	all, err := db.GetAll(ctx, schema.Destinations)
	require.NoError(t, err)
	var names []string
	for _, r := range all {
		var d Destination
		require.NoError(t, json.Unmarshal(r, &d))
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"Efes", "Pamukkale", "Göreme"}, names)
}

func TestReplace_InvalidItemKeepsPreviousList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Add(ctx, schema.Financials, json.RawMessage(`{"id":"keep","type":"income"}`))
	require.NoError(t, err)

	err = db.Replace(ctx, schema.Financials, []json.RawMessage{
		json.RawMessage(`{"id":"a","type":"income"}`),
		json.RawMessage(`{"id":"b"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInvalidRecord))

	all, err := db.GetAll(ctx, schema.Financials)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, `{"id":"keep","type":"income"}`, string(all[0]))
}

func TestFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, rec := range []string{
		`{"id":"t1","tourDate":"2024-01-10","customerName":"Ada"}`,
		`{"id":"t2","tourDate":"2024-01-11","customerName":"Ada"}`,
		`{"id":"t3","tourDate":"2024-01-10","customerName":"Bob"}`,
	} {
		_, err := db.Add(ctx, schema.Tours, json.RawMessage(rec))
		require.NoError(t, err)
	}

	got, err := db.Find(ctx, schema.Tours, "tourDate", "2024-01-10")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = db.Find(ctx, schema.Tours, "notes", "x")
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db := newTestDB(t, WithLogger(logger))

	require.NoError(t, db.Replace(context.Background(), schema.Providers, nil))
	assert.Contains(t, buf.String(), "collection replaced")
	assert.Contains(t, buf.String(), "collection=providers")
}

func TestClockInjection(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t, WithClock(testutil.NewFixedClockAt(start, 0).Now))

	tour, err := db.AddTour(context.Background(), Tour{TourDate: "2025-03-02"})
	require.NoError(t, err)
	assert.True(t, tour.CreatedAt.Equal(start))
	assert.True(t, tour.UpdatedAt.Equal(start))
}
