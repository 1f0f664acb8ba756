package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies stock ledger rows.
type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementAdjust   MovementType = "ADJUST"
	MovementTransfer MovementType = "TRANSFER"
)

// StockMovement is one row of the stock ledger written when goods leave the warehouse.
type StockMovement struct {
	ID             string
	ProductID      string
	OrderID        string
	ItemID         string
	Sequence       int32
	Type           MovementType
	QuantityChange int32
	QuantityBefore int32
	QuantityAfter  int32
	PerformedAt    time.Time
	PerformedBy    string
}

// DeliveryStatus tracks the carrier-side progress of a shipment.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryIncident  DeliveryStatus = "incident"
	DeliveryReturned  DeliveryStatus = "returned"
)

// Valid reports whether the delivery status is known.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryInTransit, DeliveryDelivered, DeliveryIncident, DeliveryReturned:
		return true
	default:
		return false
	}
}

// ShipmentRecord is the carrier metadata stored for one shipment sequence of an order.
type ShipmentRecord struct {
	OrderID          string
	OrderNumber      string
	Sequence         int32
	Method           ShippingMethod
	CarrierName      string
	ServiceName      string
	TrackingNumber   string
	TrackingURL      string
	LabelURLs        []string
	CarrierReference string
	CostPaid         decimal.Decimal
	CostCharged      decimal.Decimal
	DeliveryStatus   DeliveryStatus
	ShippedAt        time.Time
	DeliveredAt      *time.Time
	Notes            string
}

// NewShipmentRecord seeds the carrier record of a freshly committed shipment.
func NewShipmentRecord(event ShipmentCommitted) ShipmentRecord {
	record := ShipmentRecord{
		OrderID:        event.OrderID,
		OrderNumber:    event.OrderNumber,
		Sequence:       event.Sequence,
		Method:         MethodManual,
		DeliveryStatus: DeliveryInTransit,
		ShippedAt:      event.Timestamp,
	}
	if c := event.Carrier; c != nil {
		if c.Method.Valid() {
			record.Method = c.Method
		}
		record.CarrierName = c.CarrierName
		record.ServiceName = c.ServiceName
		record.TrackingNumber = c.TrackingNumber
		record.TrackingURL = c.TrackingURL
		record.CostPaid = c.CostPaid
		record.CostCharged = c.CostCharged
		record.Notes = c.Notes
	}
	if record.CarrierName == "" {
		record.CarrierName = string(record.Method)
	}
	return record
}

// HistoryItem is one product line of a past shipment.
type HistoryItem struct {
	ItemID      string
	ProductID   string
	ProductName string
	SKU         string
	Quantity    int32
}

// ShipmentHistoryEntry describes one past shipment of an order.
type ShipmentHistoryEntry struct {
	Sequence       int32
	ShippedAt      time.Time
	ShippedBy      string
	Method         ShippingMethod
	CarrierName    string
	ServiceName    string
	TrackingNumber string
	TrackingURL    string
	LabelURLs      []string
	CostPaid       decimal.Decimal
	CostCharged    decimal.Decimal
	DeliveryStatus DeliveryStatus
	DeliveredAt    *time.Time
	Notes          string
	Items          []HistoryItem
	TotalQuantity  int32
}

// BuildHistory groups OUT movements per shipment sequence, newest first, and merges carrier records.
func BuildHistory(movements []StockMovement, products map[string]ProductStock, records []ShipmentRecord) []ShipmentHistoryEntry {
	bySequence := make(map[int32]*ShipmentHistoryEntry)
	for _, mv := range movements {
		if mv.Type != MovementOut {
			continue
		}
		entry, ok := bySequence[mv.Sequence]
		if !ok {
			entry = &ShipmentHistoryEntry{
				Sequence:       mv.Sequence,
				ShippedAt:      mv.PerformedAt,
				ShippedBy:      mv.PerformedBy,
				Method:         MethodManual,
				CarrierName:    string(MethodManual),
				DeliveryStatus: DeliveryInTransit,
			}
			bySequence[mv.Sequence] = entry
		}
		if mv.PerformedAt.After(entry.ShippedAt) {
			entry.ShippedAt = mv.PerformedAt
		}
		quantity := mv.QuantityChange
		if quantity < 0 {
			quantity = -quantity
		}
		product := products[mv.ProductID]
		entry.Items = append(entry.Items, HistoryItem{
			ItemID:      mv.ItemID,
			ProductID:   mv.ProductID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    quantity,
		})
		entry.TotalQuantity += quantity
	}
	for _, record := range records {
		entry, ok := bySequence[record.Sequence]
		if !ok {
			continue
		}
		entry.Method = record.Method
		if record.CarrierName != "" {
			entry.CarrierName = record.CarrierName
		}
		entry.ServiceName = record.ServiceName
		entry.TrackingNumber = record.TrackingNumber
		entry.TrackingURL = record.TrackingURL
		entry.LabelURLs = append([]string(nil), record.LabelURLs...)
		entry.CostPaid = record.CostPaid
		entry.CostCharged = record.CostCharged
		if record.DeliveryStatus != "" {
			entry.DeliveryStatus = record.DeliveryStatus
		}
		entry.DeliveredAt = cloneTime(record.DeliveredAt)
		entry.Notes = record.Notes
	}

	history := make([]ShipmentHistoryEntry, 0, len(bySequence))
	for _, entry := range bySequence {
		history = append(history, *entry)
	}
	sort.Slice(history, func(i, j int) bool {
		if !history[i].ShippedAt.Equal(history[j].ShippedAt) {
			return history[i].ShippedAt.After(history[j].ShippedAt)
		}
		return history[i].Sequence > history[j].Sequence
	})
	return history
}
