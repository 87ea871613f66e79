package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_DeclaresAllCollections(t *testing.T) {
	reg := Default()

	require.NoError(t, reg.Validate())
	assert.Equal(t, DatabaseName, reg.Name)
	assert.Equal(t, Version, reg.Version)
	assert.Equal(t, []string{
		"tours", "financials", "customers", "settings", "expenses",
		"providers", "activities", "destinations", "ai_conversations", "customer_notes",
	}, reg.Names())

	for _, c := range reg.Collections {
		assert.Equal(t, "id", c.KeyPath, "collection %s", c.Name)
	}
}

func TestDefault_Indexes(t *testing.T) {
	reg := Default()

	tests := []struct {
		collection string
		indexes    []string
	}{
		{Tours, []string{"customerName", "tourDate"}},
		{Financials, []string{"date", "type"}},
		{Customers, []string{"name", "phone"}},
		{Settings, nil},
		{ExpenseTypes, []string{"type", "name"}},
		{CustomerNotes, []string{"customerId", "timestamp"}},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			c, ok := reg.Lookup(tt.collection)
			require.True(t, ok)
			assert.Equal(t, tt.indexes, c.Indexes)
			for _, idx := range tt.indexes {
				assert.True(t, c.HasIndex(idx))
			}
			assert.False(t, c.HasIndex("nope"))
		})
	}
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Collections[0].Indexes[0] = "mutated"

	b := Default()
	assert.Equal(t, "customerName", b.Collections[0].Indexes[0])
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Default().Lookup("invoices")
	assert.False(t, ok)
}

func TestValidate_RejectsBadRegistries(t *testing.T) {
	tests := []struct {
		name string
		reg  Registry
		want string
	}{
		{
			name: "zero version",
			reg:  Registry{Name: "x", Version: 0},
			want: "version",
		},
		{
			name: "unsafe collection name",
			reg:  Registry{Name: "x", Version: 1, Collections: []Collection{{Name: "tours; DROP", KeyPath: "id"}}},
			want: "invalid collection name",
		},
		{
			name: "duplicate collection",
			reg: Registry{Name: "x", Version: 1, Collections: []Collection{
				{Name: "tours", KeyPath: "id"},
				{Name: "tours", KeyPath: "id"},
			}},
			want: "duplicate collection",
		},
		{
			name: "empty key path",
			reg:  Registry{Name: "x", Version: 1, Collections: []Collection{{Name: "tours"}}},
			want: "invalid key path",
		},
		{
			name: "bad index",
			reg:  Registry{Name: "x", Version: 1, Collections: []Collection{{Name: "tours", KeyPath: "id", Indexes: []string{"a.b"}}}},
			want: "invalid index field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
