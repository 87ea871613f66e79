package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed records.cue
var recordsCUE string

// ErrInvalidRecord is returned when a record does not satisfy the definition
// bound to its collection.
var ErrInvalidRecord = errors.New("schema: invalid record")

// definitions binds each collection to its CUE definition in records.cue.
var definitions = map[string]string{
	Tours:           "#Tour",
	Financials:      "#Financial",
	Customers:       "#Customer",
	Settings:        "#Settings",
	ExpenseTypes:    "#ExpenseType",
	Providers:       "#Provider",
	Activities:      "#Activity",
	Destinations:    "#Destination",
	AIConversations: "#AIConversation",
	CustomerNotes:   "#CustomerNote",
}

// Validator checks JSON records against the embedded CUE definitions.
//
// A cue.Context is not safe for concurrent use, so Validate serializes
// callers on an internal mutex.
type Validator struct {
	mu   sync.Mutex
	ctx  *cue.Context
	defs map[string]cue.Value
}

// NewValidator compiles the record definitions.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(recordsCUE, cue.Filename("records.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}

	defs := make(map[string]cue.Value, len(definitions))
	for collection, name := range definitions {
		def := root.LookupPath(cue.ParsePath(name))
		if !def.Exists() {
			return nil, fmt.Errorf("compile record schema: definition %s for %q not found", name, collection)
		}
		defs[collection] = def
	}

	return &Validator{ctx: ctx, defs: defs}, nil
}

// Validate checks data against the definition for collection. Collections
// without a definition accept any JSON object.
func (v *Validator) Validate(collection string, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	def, ok := v.defs[collection]
	if !ok {
		return nil
	}

	expr, err := cuejson.Extract(collection+".json", data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, collection, err)
	}
	val := v.ctx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, collection, cueerrors.Details(err, nil))
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, collection, cueerrors.Details(err, nil))
	}
	return nil
}
