package store

import (
	"context"
	"time"

	"order-fulfillment/fulfillment/types"
)

// FileInventory is an InventoryStore backed by a single JSON document
// ({metadata, items}) that is rewritten in full on every update.
type FileInventory struct {
	path      string
	atomicity Atomicity
	lock      tableLock
	now       func() time.Time
}

// NewFileInventory opens the inventory table at path. The file is not read
// until the first call.
func NewFileInventory(path string, atomicity Atomicity) (*FileInventory, error) {
	a, err := fileAtomicity(atomicity)
	if err != nil {
		return nil, err
	}
	s := &FileInventory{path: path, atomicity: a, now: time.Now}
	s.lock.enabled = a == AtomicitySerialized
	return s, nil
}

// Path returns the table file location
func (s *FileInventory) Path() string { return s.path }

func (s *FileInventory) Atomicity() Atomicity { return s.atomicity }

func (s *FileInventory) load() (types.InventoryTable, error) {
	var table types.InventoryTable
	if err := readJSON(s.path, &table); err != nil {
		return types.InventoryTable{}, err
	}
	if table.Items == nil {
		table.Items = map[string]types.InventoryItem{}
	}
	return table, nil
}

func (s *FileInventory) Get(_ context.Context) (map[string]types.InventoryItem, error) {
	table, err := s.load()
	if err != nil {
		return nil, err
	}
	return table.Items, nil
}

func (s *FileInventory) Update(_ context.Context, name string, fn Mutator) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}
	item, ok := table.Items[name]
	if !ok {
		return types.ItemNotFound(name)
	}
	if err := fn(&item); err != nil {
		return err
	}
	item.UpdatedAt = s.now().UTC()
	table.Items[name] = item

	return writeJSON(s.path, table)
}

func (s *FileInventory) Seed(_ context.Context, table types.InventoryTable) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if table.Items == nil {
		table.Items = map[string]types.InventoryItem{}
	}
	return writeJSON(s.path, table)
}
