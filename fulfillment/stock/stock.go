// Package stock holds the inventory mutations applied while an order
// progresses. The stage runner and the Temporal activities both go through
// these functions.
package stock

import (
	"context"

	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

// Reserve claims one free unit of item. It fails with ErrOutOfStock when
// every available unit is already reserved.
func Reserve(ctx context.Context, inv store.InventoryStore, item string) error {
	return inv.Update(ctx, item, func(it *types.InventoryItem) error {
		if it.Free() <= 0 {
			return types.ErrOutOfStock
		}
		it.Reserved++
		return nil
	})
}

// ReleaseAndShip turns one reserved unit of item into a shipped one.
// Counters never go below zero. unreserved reports a shipment that found no
// reservation to convert, which happens when a concurrent update under
// AtomicityNone overwrote it; the order still ships.
func ReleaseAndShip(ctx context.Context, inv store.InventoryStore, item string) (unreserved bool, err error) {
	err = inv.Update(ctx, item, func(it *types.InventoryItem) error {
		unreserved = it.Reserved <= 0 || it.Available <= 0
		if it.Reserved > 0 {
			it.Reserved--
		}
		if it.Available > 0 {
			it.Available--
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return unreserved, nil
}

// Release gives a reserved unit back without shipping it (compensation).
func Release(ctx context.Context, inv store.InventoryStore, item string) error {
	return inv.Update(ctx, item, func(it *types.InventoryItem) error {
		if it.Reserved > 0 {
			it.Reserved--
		}
		return nil
	})
}
