// Package ident provides the identifier-generation capability used when a
// record is saved without a primary key.
package ident

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator produces record identifiers.
type Generator interface {
	NewID() string
}

// UUIDGenerator generates random (version 4) UUIDs in the hyphenated
// 36-character form, e.g. "550e8400-e29b-41d4-a716-446655440000".
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// NewID returns a fresh random UUID.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Default is the generator used when none is injected.
var Default Generator = UUIDGenerator{}

// FixedGenerator returns predetermined identifiers for tests.
//
// Once the list is exhausted it falls back to "<prefix>-<n>" so tests that
// only care about determinism need not count calls.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	ids    []string
	idx    int
	prefix string
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("t1", "t2")
//	gen.NewID() // "t1"
//	gen.NewID() // "t2"
//	gen.NewID() // "id-3"
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids, prefix: "id"}
}

// NewSequenceGenerator creates a generator that returns "<prefix>-1",
// "<prefix>-2", ...
func NewSequenceGenerator(prefix string) *FixedGenerator {
	return &FixedGenerator{prefix: prefix}
}

// NewID returns the next predetermined id.
func (g *FixedGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.idx)
}

// Valid reports whether id is a hyphenated UUID with the RFC 4122 variant.
func Valid(id string) bool {
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return u.Variant() == uuid.RFC4122
}
