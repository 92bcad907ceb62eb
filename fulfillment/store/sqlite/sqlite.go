// Package sqlite provides transactional inventory and order stores on a
// single SQLite database. Every inventory update runs in its own transaction,
// so concurrent reservations of the same item never lose an increment.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"order-fulfillment/fulfillment/store"
	"order-fulfillment/fulfillment/types"
)

//go:embed schema.sql
var schemaSQL string

// DB owns the database handle shared by the inventory and order stores.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer and this also serialises
	// transactions issued from different goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &DB{db: db, now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Inventory returns the inventory store view of the database.
func (d *DB) Inventory() *Inventory { return &Inventory{d: d} }

// Orders returns the order store view of the database.
func (d *DB) Orders() *Orders { return &Orders{d: d} }

// Inventory implements store.InventoryStore.
type Inventory struct {
	d *DB
}

func (i *Inventory) Atomicity() store.Atomicity { return store.AtomicityTransactional }

func (i *Inventory) Get(ctx context.Context) (map[string]types.InventoryItem, error) {
	rows, err := i.d.db.QueryContext(ctx,
		`SELECT name, sku, price, available, reserved, location, updated_at FROM inventory_items`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrLoadFailed, err)
	}
	defer rows.Close()

	items := map[string]types.InventoryItem{}
	for rows.Next() {
		var (
			name, updated string
			it            types.InventoryItem
		)
		if err := rows.Scan(&name, &it.SKU, &it.Price, &it.Available, &it.Reserved, &it.Location, &updated); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrLoadFailed, err)
		}
		if it.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("%w: item %s: %v", store.ErrLoadFailed, name, err)
		}
		items[name] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrLoadFailed, err)
	}
	return items, nil
}

func (i *Inventory) Update(ctx context.Context, name string, fn store.Mutator) error {
	tx, err := i.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var (
		it      types.InventoryItem
		updated string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT sku, price, available, reserved, location, updated_at FROM inventory_items WHERE name = ?`, name).
		Scan(&it.SKU, &it.Price, &it.Available, &it.Reserved, &it.Location, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ItemNotFound(name)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrLoadFailed, err)
	}

	if err := fn(&it); err != nil {
		return err
	}
	it.UpdatedAt = i.d.now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE inventory_items SET available = ?, reserved = ?, updated_at = ? WHERE name = ?`,
		it.Available, it.Reserved, it.UpdatedAt.Format(time.RFC3339Nano), name)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	return nil
}

func (i *Inventory) Seed(ctx context.Context, table types.InventoryTable) error {
	tx, err := i.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items`); err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_metadata (id, version, generated_at, currency) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET version = excluded.version, generated_at = excluded.generated_at, currency = excluded.currency`,
		table.Metadata.Version, table.Metadata.GeneratedAt.UTC().Format(time.RFC3339Nano), table.Metadata.Currency)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	for name, it := range table.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_items (name, sku, price, available, reserved, location, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, it.SKU, it.Price, it.Available, it.Reserved, it.Location, it.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("%w: item %s: %v", store.ErrSaveFailed, name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	return nil
}

// Orders implements store.OrderStore. Records are kept as JSON documents so
// the history travels with the order unchanged.
type Orders struct {
	d *DB
}

func (o *Orders) Atomicity() store.Atomicity { return store.AtomicityTransactional }

func (o *Orders) Get(ctx context.Context, id string) (types.Order, bool, error) {
	var body string
	err := o.d.db.QueryRowContext(ctx, `SELECT body FROM orders WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Order{}, false, nil
	}
	if err != nil {
		return types.Order{}, false, fmt.Errorf("%w: %v", store.ErrLoadFailed, err)
	}

	var order types.Order
	if err := json.Unmarshal([]byte(body), &order); err != nil {
		return types.Order{}, false, fmt.Errorf("%w: order %s: %v", store.ErrLoadFailed, id, err)
	}
	return order, true, nil
}

func (o *Orders) Upsert(ctx context.Context, order types.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%w: order %s: %v", store.ErrSaveFailed, order.OrderID, err)
	}
	_, err = o.d.db.ExecContext(ctx,
		`INSERT INTO orders (id, body) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET body = excluded.body`,
		order.OrderID, string(body))
	if err != nil {
		return fmt.Errorf("%w: order %s: %v", store.ErrSaveFailed, order.OrderID, err)
	}
	return nil
}

func (o *Orders) Reset(ctx context.Context) error {
	if _, err := o.d.db.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("%w: %v", store.ErrSaveFailed, err)
	}
	return nil
}

var (
	_ store.InventoryStore = (*Inventory)(nil)
	_ store.OrderStore     = (*Orders)(nil)
)
