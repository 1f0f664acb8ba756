package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reconciliation is the full set of ledger changes produced by one committed shipment.
type Reconciliation struct {
	OrderID        string
	OrderNumber    string
	Sequence       int32
	PreviousStatus Status
	Status         Status
	ShippedAt      time.Time
	ActorID        string
	StampedOrder   bool
	Lines          []ShipmentLine
	Movements      []StockMovement
	Order          *SalesOrder
	Carrier        *CarrierDetails
	IdempotencyKey string
	RequestHash    string
}

// UnitsShipped sums the quantities of every line.
func (r *Reconciliation) UnitsShipped() int32 {
	var total int32
	for _, line := range r.Lines {
		total += line.Quantity
	}
	return total
}

// Reconcile validates the request against the ledger and computes the post-shipment state.
// The ledger is not mutated; the new order state is returned on the reconciliation.
func Reconcile(ledger *Ledger, req ShipmentRequest, now time.Time) (*Reconciliation, error) {
	lines, err := Validate(ledger, req)
	if err != nil {
		return nil, err
	}
	order := ledger.Order.Clone()
	shippedAt := now
	if req.ShippedAt != nil && !req.ShippedAt.IsZero() {
		shippedAt = *req.ShippedAt
	}
	rec := &Reconciliation{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Sequence:       order.ShipmentCount + 1,
		PreviousStatus: order.Status,
		ShippedAt:      shippedAt,
		ActorID:        req.ActorID,
		Lines:          lines,
		Carrier:        req.Carrier,
		IdempotencyKey: req.IdempotencyKey,
	}

	running := make(map[string]int32, len(ledger.Stock))
	for id, product := range ledger.Stock {
		running[id] = product.StockReal
	}
	for _, line := range lines {
		item, _ := order.Item(line.ItemID)
		item.QuantityShipped += line.Quantity
		before := running[item.ProductID]
		after := before - line.Quantity
		running[item.ProductID] = after
		rec.Movements = append(rec.Movements, StockMovement{
			ID:             uuid.NewString(),
			ProductID:      item.ProductID,
			OrderID:        order.ID,
			ItemID:         item.ID,
			Sequence:       rec.Sequence,
			Type:           MovementOut,
			QuantityChange: -line.Quantity,
			QuantityBefore: before,
			QuantityAfter:  after,
			PerformedAt:    shippedAt,
			PerformedBy:    req.ActorID,
		})
	}

	order.Status = DeriveStatus(order.Items)
	if rec.PreviousStatus == StatusConfirmed && order.ShippedAt == nil {
		at := shippedAt
		order.ShippedAt = &at
		if req.ActorID != "" {
			by := req.ActorID
			order.ShippedBy = &by
		}
		rec.StampedOrder = true
	}
	order.ShipmentCount = rec.Sequence
	order.Version++

	rec.Status = order.Status
	rec.Order = order
	return rec, nil
}

// Event returns the domain event describing the committed shipment.
func (r *Reconciliation) Event() ShipmentCommitted {
	return ShipmentCommitted{
		BaseEvent:      BaseEvent{Timestamp: r.ShippedAt},
		OrderID:        r.OrderID,
		OrderNumber:    r.OrderNumber,
		Sequence:       r.Sequence,
		PreviousStatus: r.PreviousStatus,
		Status:         r.Status,
		ActorID:        r.ActorID,
		Lines:          append([]ShipmentLine(nil), r.Lines...),
		Carrier:        r.Carrier,
	}
}
