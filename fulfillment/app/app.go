// Package app wires configuration into stores and the selected backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"

	"order-fulfillment/fulfillment/config"
	"order-fulfillment/fulfillment/logging"
	"order-fulfillment/fulfillment/pool"
	"order-fulfillment/fulfillment/query"
	"order-fulfillment/fulfillment/simulator"
	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/store/sqlite"
)

// Stores bundles the two tables for the configured driver.
type Stores struct {
	Orders    store.OrderStore
	Inventory store.InventoryStore
	close     func() error
}

// OpenStores opens the inventory and order tables under cfg.DataDir.
func OpenStores(cfg config.Config) (*Stores, error) {
	atomicity, err := cfg.Atomicity()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		return &Stores{Orders: db.Orders(), Inventory: db.Inventory(), close: db.Close}, nil
	default:
		orders, err := store.NewFileOrders(cfg.OrdersPath(), atomicity)
		if err != nil {
			return nil, err
		}
		inventory, err := store.NewFileInventory(cfg.InventoryPath(), atomicity)
		if err != nil {
			return nil, err
		}
		return &Stores{Orders: orders, Inventory: inventory, close: func() error { return nil }}, nil
	}
}

// Close releases the underlying database, if any.
func (s *Stores) Close() error {
	return s.close()
}

// Reset rewrites the inventory with the demo table (levels override
// counters) and empties the orders table.
func (s *Stores) Reset(ctx context.Context, levels map[string]store.StockLevel) error {
	if err := s.Inventory.Seed(ctx, store.DemoInventory(levels)); err != nil {
		return err
	}
	return s.Orders.Reset(ctx)
}

// DialTemporal connects to the Temporal frontend named in cfg.
func DialTemporal(cfg config.Config, log *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.Temporal(log),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return c, nil
}

// Backend is the pair of submit and query paths used by the boundary.
type Backend struct {
	Submitter query.Submitter
	Source    query.Source

	runner   *simulator.Runner
	temporal client.Client
}

// NewBackend builds the simulator backend, or the Temporal one when
// cfg.UseTemporal is set.
func NewBackend(cfg config.Config, stores *Stores, log *slog.Logger) (*Backend, error) {
	if cfg.UseTemporal {
		c, err := DialTemporal(cfg, log)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Submitter: query.NewTemporalSubmitter(c, cfg.TaskQueue),
			Source:    query.NewTemporalSource(c),
			temporal:  c,
		}, nil
	}

	delays := cfg.Delays
	runner := simulator.New(stores.Orders, stores.Inventory, simulator.Options{
		Delays: &delays,
		Pool:   pool.New(cfg.MaxInFlight),
		Logger: log,
	})
	return &Backend{
		Submitter: runner,
		Source:    query.NewStoreSource(stores.Orders),
		runner:    runner,
	}, nil
}

// Close waits for in-flight simulated orders, then drops the Temporal
// connection.
func (b *Backend) Close() error {
	var errs []error
	if b.runner != nil {
		errs = append(errs, b.runner.Wait())
	}
	if b.temporal != nil {
		b.temporal.Close()
	}
	return errors.Join(errs...)
}
