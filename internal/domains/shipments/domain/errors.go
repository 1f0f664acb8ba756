package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrOrderNotFound      = fmt.Errorf("sales order %w", ErrNotFound)
	ErrItemNotFound       = fmt.Errorf("sales order item %w", ErrNotFound)
	ErrProductNotFound    = fmt.Errorf("product %w", ErrNotFound)
	ErrInvalidOrderState  = errors.New("sales order is not in a shippable state")
	ErrEmptyRequest       = errors.New("shipment request contains no quantity to ship")
	ErrOverShipment       = errors.New("shipment exceeds remaining quantity")
	ErrNegativeQuantity   = errors.New("quantity to ship must not be negative")
	ErrQuantityOutOfRange = errors.New("quantity to ship is out of range")
)

// OverShipmentError identifies the first line whose requested quantity exceeds what is left.
type OverShipmentError struct {
	ItemID    string
	Requested int32
	Remaining int32
}

// Excess is the number of units above the remaining quantity.
func (e *OverShipmentError) Excess() int32 {
	return e.Requested - e.Remaining
}

func (e *OverShipmentError) Error() string {
	return fmt.Sprintf("item %s: requested %d but only %d remaining (excess %d)", e.ItemID, e.Requested, e.Remaining, e.Excess())
}

func (e *OverShipmentError) Unwrap() error { return ErrOverShipment }

// InvalidOrderStateError carries the status that blocked the shipment.
type InvalidOrderStateError struct {
	OrderID string
	Status  Status
}

func (e *InvalidOrderStateError) Error() string {
	return fmt.Sprintf("sales order %s has status %q", e.OrderID, e.Status)
}

func (e *InvalidOrderStateError) Unwrap() error { return ErrInvalidOrderState }

// ItemNotFoundError names the unknown line.
type ItemNotFoundError struct {
	OrderID string
	ItemID  string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s does not belong to sales order %s", e.ItemID, e.OrderID)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }
