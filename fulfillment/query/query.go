// Package query exposes the pollable view of orders, independent of which
// backend progresses them.
package query

import (
	"context"

	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

// Source returns the current record of an order, or types.ErrNotFound.
type Source interface {
	GetOrder(ctx context.Context, orderID string) (types.Order, error)
}

// Submitter starts progression of a new order and returns its ID.
type Submitter interface {
	Submit(ctx context.Context, item string) (string, error)
}

// StoreSource reads orders straight from the order store.
type StoreSource struct {
	orders store.OrderStore
}

// NewStoreSource returns a Source backed by orders.
func NewStoreSource(orders store.OrderStore) *StoreSource {
	return &StoreSource{orders: orders}
}

func (s *StoreSource) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	o, found, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}
	if !found {
		return types.Order{}, types.ErrNotFound
	}
	return o, nil
}
