package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"order-fulfillment/fulfillment/types"
)

func newInventory(t *testing.T, atomicity Atomicity) *FileInventory {
	t.Helper()
	s, err := NewFileInventory(filepath.Join(t.TempDir(), "inventory.json"), atomicity)
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), DemoInventory(nil)))
	return s
}

func newOrders(t *testing.T, atomicity Atomicity) *FileOrders {
	t.Helper()
	s, err := NewFileOrders(filepath.Join(t.TempDir(), "state.json"), atomicity)
	require.NoError(t, err)
	return s
}

func TestParseAtomicity(t *testing.T) {
	tests := []struct {
		in      string
		want    Atomicity
		wantErr bool
	}{
		{in: "", want: AtomicityNone},
		{in: "none", want: AtomicityNone},
		{in: "serialized", want: AtomicitySerialized},
		{in: "transactional", want: AtomicityTransactional},
		{in: "eventual", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAtomicity(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFileInventory_RejectsTransactional(t *testing.T) {
	_, err := NewFileInventory(filepath.Join(t.TempDir(), "inventory.json"), AtomicityTransactional)
	require.Error(t, err)
}

func TestFileInventory_SeedWritesDemoTable(t *testing.T) {
	s := newInventory(t, AtomicityNone)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "demo_inventory", data)
}

func TestFileInventory_Update(t *testing.T) {
	s := newInventory(t, AtomicityNone)
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return stamp }

	err := s.Update(context.Background(), "Wireless Mouse", func(it *types.InventoryItem) error {
		it.Reserved++
		return nil
	})
	require.NoError(t, err)

	items, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, items["Wireless Mouse"].Reserved)
	assert.Equal(t, 150, items["Wireless Mouse"].Available)
	assert.Equal(t, stamp, items["Wireless Mouse"].UpdatedAt)
	assert.Equal(t, 5, items["Mechanical Keyboard"].Reserved, "other items untouched")
}

func TestFileInventory_UpdateMissingItem(t *testing.T) {
	s := newInventory(t, AtomicityNone)
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	called := false
	err = s.Update(context.Background(), "Paper Airplane", func(it *types.InventoryItem) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, types.ErrItemNotFound)
	assert.Equal(t, "Item Paper Airplane not found", err.Error())
	assert.False(t, called)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileInventory_MutatorErrorPersistsNothing(t *testing.T) {
	s := newInventory(t, AtomicityNone)
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	err = s.Update(context.Background(), "Wireless Mouse", func(it *types.InventoryItem) error {
		it.Reserved += 100
		return types.ErrOutOfStock
	})
	require.ErrorIs(t, err, types.ErrOutOfStock)

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileInventory_GetMissingFile(t *testing.T) {
	s, err := NewFileInventory(filepath.Join(t.TempDir(), "absent.json"), AtomicityNone)
	require.NoError(t, err)

	_, err = s.Get(context.Background())
	require.ErrorIs(t, err, ErrLoadFailed)
}

func TestFileInventory_SerializedUpdatesAreExact(t *testing.T) {
	s := newInventory(t, AtomicitySerialized)
	const n = 40

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return s.Update(context.Background(), "USB-C Cable", func(it *types.InventoryItem) error {
				it.Reserved++
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())

	items, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25+n, items["USB-C Cable"].Reserved)
}

func TestFileInventory_UnserializedUpdatesCanBeLost(t *testing.T) {
	s := newInventory(t, AtomicityNone)
	ctx := context.Background()
	read := make(chan struct{})
	proceed := make(chan struct{})

	// The first updater reads the table, then stalls while a second update
	// completes. Its write is based on the stale snapshot and wins.
	var g errgroup.Group
	g.Go(func() error {
		return s.Update(ctx, "Mechanical Keyboard", func(it *types.InventoryItem) error {
			close(read)
			<-proceed
			it.Reserved++
			return nil
		})
	})

	<-read
	require.NoError(t, s.Update(ctx, "Mechanical Keyboard", func(it *types.InventoryItem) error {
		it.Reserved++
		return nil
	}))
	close(proceed)
	require.NoError(t, g.Wait())

	items, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, items["Mechanical Keyboard"].Reserved, "one of the two reservations is lost")
}

func TestFileInventory_LeavesNoTempFiles(t *testing.T) {
	s := newInventory(t, AtomicityNone)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Update(context.Background(), "Wireless Mouse", func(it *types.InventoryItem) error {
			it.Reserved++
			return nil
		}))
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inventory.json", entries[0].Name())
}

func TestFileOrders_GetFromMissingFile(t *testing.T) {
	s := newOrders(t, AtomicityNone)

	_, found, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileOrders_UpsertReplacesRecord(t *testing.T) {
	s := newOrders(t, AtomicityNone)
	ctx := context.Background()
	now := time.Date(2025, 10, 23, 12, 0, 0, 0, time.UTC)

	o := types.NewOrder("o-1", "Widget", now)
	require.NoError(t, s.Upsert(ctx, o))

	o.Advance(types.StateInventoryReserved, "Reserved inventory for Widget", now.Add(time.Second))
	require.NoError(t, s.Upsert(ctx, o))

	got, found, err := s.Get(ctx, "o-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, o, got)
}

func TestFileOrders_Reset(t *testing.T) {
	s := newOrders(t, AtomicityNone)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, types.NewOrder("o-1", "Widget", time.Now().UTC())))

	require.NoError(t, s.Reset(ctx))

	_, found, err := s.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileOrders_SerializedUpsertsKeepEveryOrder(t *testing.T) {
	s := newOrders(t, AtomicitySerialized)
	ctx := context.Background()
	const n = 30

	var g errgroup.Group
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("o-%d", i)
		g.Go(func() error {
			return s.Upsert(ctx, types.NewOrder(id, "Widget", time.Now().UTC()))
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < n; i++ {
		_, found, err := s.Get(ctx, fmt.Sprintf("o-%d", i))
		require.NoError(t, err)
		assert.True(t, found, "order o-%d lost", i)
	}
}

func TestFileOrders_CorruptTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s, err := NewFileOrders(path, AtomicityNone)
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "o-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoadFailed))
}

func TestDemoInventory_Overrides(t *testing.T) {
	table := DemoInventory(map[string]StockLevel{
		"Mechanical Keyboard": {Available: 150, Reserved: 150},
		"Paper Airplane":      {Available: 1},
	})

	assert.Len(t, table.Items, 3)
	assert.Equal(t, 0, table.Items["Mechanical Keyboard"].Free())
	assert.Equal(t, 150, table.Items["Wireless Mouse"].Available)
}
