package types

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// NormalizeItem trims an item name and puts it in NFC form so that names typed
// by clients match the keys in the inventory table.
func NormalizeItem(item string) string {
	return norm.NFC.String(strings.TrimSpace(item))
}

// NewOrder builds the initial record for a freshly submitted order
func NewOrder(orderID, item string, now time.Time) Order {
	return Order{
		OrderID: orderID,
		Item:    item,
		State:   StateCreated,
		Status:  "Order created",
		History: []HistoryEntry{
			{Timestamp: now, Stage: string(StateCreated), Message: "Order created", State: StateCreated},
		},
	}
}

// Advance records a successful transition. It reports false and leaves the
// order untouched when the order is already terminal.
func (o *Order) Advance(state OrderState, message string, now time.Time) bool {
	if o.State.Terminal() {
		return false
	}
	o.State = state
	o.Status = message
	o.History = append(o.History, HistoryEntry{
		Timestamp: now,
		Stage:     string(state),
		Message:   message,
		State:     state,
	})
	return true
}

// Fail records the terminal failed transition carrying cause
func (o *Order) Fail(cause error, now time.Time) bool {
	if o.State.Terminal() {
		return false
	}
	msg := cause.Error()
	o.State = StateFailed
	o.Status = "Failed: " + msg
	o.Error = msg
	o.ErrorKind = KindOf(cause)
	o.History = append(o.History, HistoryEntry{
		Timestamp: now,
		Stage:     string(StateFailed),
		Message:   msg,
		State:     StateFailed,
	})
	return true
}

// Clone returns a copy that shares no history backing array with o
func (o Order) Clone() Order {
	o.History = append([]HistoryEntry(nil), o.History...)
	return o
}
