package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at the boundary so callers never have to
// match on message text
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindItemNotFound ErrorKind = "item_not_found"
	KindOutOfStock   ErrorKind = "out_of_stock"
	KindNotFound     ErrorKind = "not_found"
	KindInternal     ErrorKind = "internal"
)

// Error is a classified failure. Msg keeps the literal text clients have
// historically matched on ("Out of stock", "Item X not found").
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Msg: "Missing item"}
	ErrItemNotFound = &Error{Kind: KindItemNotFound, Msg: "Item not found"}
	ErrOutOfStock   = &Error{Kind: KindOutOfStock, Msg: "Out of stock"}
	ErrNotFound     = &Error{Kind: KindNotFound, Msg: "Not found"}
)

// ItemNotFound returns the error for an inventory lookup miss
func ItemNotFound(name string) error {
	return &Error{Kind: KindItemNotFound, Msg: fmt.Sprintf("Item %s not found", name)}
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ParseKind maps a kind name carried across a process boundary back to an
// ErrorKind. Unknown names are internal.
func ParseKind(s string) ErrorKind {
	switch k := ErrorKind(s); k {
	case KindInvalidInput, KindItemNotFound, KindOutOfStock, KindNotFound:
		return k
	default:
		return KindInternal
	}
}
