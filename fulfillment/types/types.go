package types

import "time"

// OrderState represents the stage an order has reached
type OrderState string

const (
	StateCreated           OrderState = "created"
	StateInventoryReserved OrderState = "inventory_reserved"
	StatePaymentVerified   OrderState = "payment_verified"
	StateAddressVerified   OrderState = "address_verified"
	StatePaid              OrderState = "paid"
	StateShipped           OrderState = "shipped"
	StateFailed            OrderState = "failed"
)

// Terminal reports whether no further transitions may follow this state
func (s OrderState) Terminal() bool {
	return s == StateShipped || s == StateFailed
}

// HistoryEntry is one recorded transition of an order
type HistoryEntry struct {
	Timestamp time.Time  `json:"ts"`
	Stage     string     `json:"stage"`
	Message   string     `json:"message"`
	State     OrderState `json:"state"`
}

// Order is the pollable record of a single customer request
type Order struct {
	OrderID   string         `json:"orderId"`
	Item      string         `json:"item,omitempty"`
	State     OrderState     `json:"state"`
	Status    string         `json:"status"`
	History   []HistoryEntry `json:"history"`
	Error     string         `json:"error,omitempty"`
	ErrorKind ErrorKind      `json:"errorKind,omitempty"`
}

// InventoryItem holds the stock counters for one item
type InventoryItem struct {
	SKU       string    `json:"sku"`
	Price     float64   `json:"price"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	Location  string    `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Free returns the units that can still be reserved
func (i InventoryItem) Free() int {
	return i.Available - i.Reserved
}

// InventoryMetadata describes the inventory table as a whole
type InventoryMetadata struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Currency    string    `json:"currency"`
}

// InventoryTable is the persisted inventory document
type InventoryTable struct {
	Metadata InventoryMetadata        `json:"metadata"`
	Items    map[string]InventoryItem `json:"items"`
}

// OrdersTable is the persisted orders document
type OrdersTable struct {
	Orders map[string]Order `json:"orders"`
}
