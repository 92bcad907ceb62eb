package store

import (
	"context"
	"errors"
	"io/fs"

	"order-fulfillment/fulfillment/types"
)

// FileOrders is an OrderStore backed by a single JSON document ({orders})
// that is rewritten in full on every upsert. A missing file reads as an
// empty table.
type FileOrders struct {
	path      string
	atomicity Atomicity
	lock      tableLock
}

// NewFileOrders opens the orders table at path
func NewFileOrders(path string, atomicity Atomicity) (*FileOrders, error) {
	a, err := fileAtomicity(atomicity)
	if err != nil {
		return nil, err
	}
	s := &FileOrders{path: path, atomicity: a}
	s.lock.enabled = a == AtomicitySerialized
	return s, nil
}

// Path returns the table file location
func (s *FileOrders) Path() string { return s.path }

func (s *FileOrders) Atomicity() Atomicity { return s.atomicity }

func (s *FileOrders) load() (types.OrdersTable, error) {
	var table types.OrdersTable
	if err := readJSON(s.path, &table); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return types.OrdersTable{}, err
		}
	}
	if table.Orders == nil {
		table.Orders = map[string]types.Order{}
	}
	return table, nil
}

func (s *FileOrders) Get(_ context.Context, id string) (types.Order, bool, error) {
	table, err := s.load()
	if err != nil {
		return types.Order{}, false, err
	}
	o, ok := table.Orders[id]
	return o, ok, nil
}

func (s *FileOrders) Upsert(_ context.Context, order types.Order) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}
	table.Orders[order.OrderID] = order
	return writeJSON(s.path, table)
}

func (s *FileOrders) Reset(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return writeJSON(s.path, types.OrdersTable{Orders: map[string]types.Order{}})
}
