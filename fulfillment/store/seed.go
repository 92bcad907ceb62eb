package store

import (
	"time"

	"order-fulfillment/fulfillment/types"
)

// StockLevel overrides the counters of one demo item
type StockLevel struct {
	Available int `yaml:"available"`
	Reserved  int `yaml:"reserved"`
}

// DemoLevels are the counters the demo tables are reset to
var DemoLevels = map[string]StockLevel{
	"Wireless Mouse":      {Available: 150, Reserved: 10},
	"Mechanical Keyboard": {Available: 6, Reserved: 5},
	"USB-C Cable":         {Available: 500, Reserved: 25},
}

var demoGeneratedAt = time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC)

// DemoInventory returns the demo inventory table. Entries in levels replace
// the default counters of the named items; unknown names are ignored.
func DemoInventory(levels map[string]StockLevel) types.InventoryTable {
	level := func(name string) StockLevel {
		if l, ok := levels[name]; ok {
			return l
		}
		return DemoLevels[name]
	}
	item := func(name, sku string, price float64, location string) types.InventoryItem {
		l := level(name)
		return types.InventoryItem{
			SKU:       sku,
			Price:     price,
			Available: l.Available,
			Reserved:  l.Reserved,
			Location:  location,
			UpdatedAt: demoGeneratedAt,
		}
	}

	return types.InventoryTable{
		Metadata: types.InventoryMetadata{
			Version:     1,
			GeneratedAt: demoGeneratedAt,
			Currency:    "USD",
		},
		Items: map[string]types.InventoryItem{
			"Wireless Mouse":      item("Wireless Mouse", "SKU-1001", 24.99, "WH-SEA-01"),
			"Mechanical Keyboard": item("Mechanical Keyboard", "SKU-2002", 89.5, "WH-SEA-01"),
			"USB-C Cable":         item("USB-C Cable", "SKU-3003", 8.99, "WH-SFO-02"),
		},
	}
}
