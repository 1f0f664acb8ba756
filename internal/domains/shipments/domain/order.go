package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the fulfillment states of a sales order.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusConfirmed        Status = "confirmed"
	StatusPartiallyShipped Status = "partially_shipped"
	StatusShipped          Status = "shipped"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
)

// Shippable reports whether new shipments may be recorded against an order in this status.
func (s Status) Shippable() bool {
	return s == StatusConfirmed || s == StatusPartiallyShipped
}

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusConfirmed, StatusPartiallyShipped, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// CustomerKind discriminates the customer reference union.
type CustomerKind string

const (
	CustomerOrganisation CustomerKind = "organisation"
	CustomerIndividual   CustomerKind = "individual"
)

// CustomerRef points at either an organisation or an individual customer.
type CustomerRef struct {
	Kind CustomerKind
	ID   string
}

// IsZero reports whether the reference is unset.
func (c CustomerRef) IsZero() bool {
	return c.Kind == "" && c.ID == ""
}

// SalesOrderItem is one ordered line of a sales order.
type SalesOrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	QuantityOrdered int32
	QuantityShipped int32
	UnitPrice       decimal.Decimal
}

// Remaining returns the quantity still to ship, never negative.
func (i SalesOrderItem) Remaining() int32 {
	remaining := i.QuantityOrdered - i.QuantityShipped
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FullyShipped reports whether every ordered unit left the warehouse.
func (i SalesOrderItem) FullyShipped() bool {
	return i.QuantityShipped >= i.QuantityOrdered
}

// SalesOrder is the ledger aggregate reconciled by shipments.
type SalesOrder struct {
	ID                   string
	OrderNumber          string
	Status               Status
	Customer             CustomerRef
	CreatedAt            time.Time
	ExpectedDeliveryDate *time.Time
	ShippedAt            *time.Time
	ShippedBy            *string
	ShipmentCount        int32
	Version              int64
	Items                []SalesOrderItem
}

// Item returns the line with the given id.
func (o *SalesOrder) Item(id string) (*SalesOrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (o *SalesOrder) Clone() *SalesOrder {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]SalesOrderItem(nil), o.Items...)
	clone.ExpectedDeliveryDate = cloneTime(o.ExpectedDeliveryDate)
	clone.ShippedAt = cloneTime(o.ShippedAt)
	if o.ShippedBy != nil {
		by := *o.ShippedBy
		clone.ShippedBy = &by
	}
	return &clone
}

// ProductStock is the point-in-time physical stock of a product.
type ProductStock struct {
	ProductID string
	Name      string
	SKU       string
	StockReal int32
}

// Ledger is the consistent read of an order plus the stock of every product it references.
type Ledger struct {
	Order *SalesOrder
	Stock map[string]ProductStock
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
