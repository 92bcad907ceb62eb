// Package store holds the inventory and order tables the fulfillment engine
// coordinates through.
//
// The file-backed stores rewrite a whole JSON document on every update. A
// write is all-or-nothing from the caller's point of view (temp file plus
// rename), but read-modify-write cycles are only serialised when the store is
// opened with AtomicitySerialized. With AtomicityNone two concurrent updates
// may both read the same snapshot and the later write wins; that is the
// behaviour the demo tables have always had and it is kept as the default.
package store

import (
	"context"
	"errors"
	"fmt"

	"order-fulfillment/fulfillment/types"
)

var (
	ErrLoadFailed = errors.New("load failed")
	ErrSaveFailed = errors.New("save failed")
)

// Atomicity is the guarantee a store gives for concurrent read-modify-write
// updates of the same table.
type Atomicity string

const (
	// AtomicityNone lets concurrent updaters race; last snapshot written wins.
	AtomicityNone Atomicity = "none"
	// AtomicitySerialized serialises updates within one process.
	AtomicitySerialized Atomicity = "serialized"
	// AtomicityTransactional runs each update in a database transaction.
	AtomicityTransactional Atomicity = "transactional"
)

// ParseAtomicity parses a configuration value
func ParseAtomicity(s string) (Atomicity, error) {
	switch a := Atomicity(s); a {
	case AtomicityNone, AtomicitySerialized, AtomicityTransactional:
		return a, nil
	case "":
		return AtomicityNone, nil
	default:
		return "", fmt.Errorf("unknown atomicity %q", s)
	}
}

// Mutator changes one inventory item in place. Returning an error aborts the
// update and nothing is persisted.
type Mutator func(item *types.InventoryItem) error

// InventoryStore holds per-item stock counters
type InventoryStore interface {
	Get(ctx context.Context) (map[string]types.InventoryItem, error)
	// Update applies fn to the named item and persists the table. It fails
	// with types.ErrItemNotFound when the item is absent.
	Update(ctx context.Context, name string, fn Mutator) error
	Seed(ctx context.Context, table types.InventoryTable) error
	Atomicity() Atomicity
}

// OrderStore holds per-order records
type OrderStore interface {
	// Get reports found=false for an unknown id.
	Get(ctx context.Context, id string) (order types.Order, found bool, err error)
	Upsert(ctx context.Context, order types.Order) error
	Reset(ctx context.Context) error
	Atomicity() Atomicity
}
