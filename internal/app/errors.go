package app

import (
	"errors"
	"fmt"
)

// ErrNoItems is returned when an order request carries no line items.
var ErrNoItems = errors.New("order must contain at least one item")

// ErrEmptyCart is returned when checkout is attempted on an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInvalidQuantity is returned when a general-admission line requests
// zero units.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// InsufficientError reports that a general-admission request asked for
// more units than remain unreserved.
type InsufficientError struct {
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient general admission availability: requested %d, available %d", e.Requested, e.Available)
}
