package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
)

var (
	// ErrOrderBusy signals another process holds the order lock.
	ErrOrderBusy = errors.New("sales order is locked by another shipment")
	// ErrRecordNotFound signals no carrier record exists for the shipment.
	ErrRecordNotFound = errors.New("shipment record not found")
)

// ShipmentRecordStore keeps carrier metadata per shipment sequence.
type ShipmentRecordStore interface {
	Save(ctx context.Context, record domain.ShipmentRecord) error
	Get(ctx context.Context, orderID string, sequence int32) (*domain.ShipmentRecord, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.ShipmentRecord, error)
}

// OrderLocker serializes shipments of the same order across processes.
type OrderLocker interface {
	// Acquire blocks until the lock is held or returns ErrOrderBusy.
	Acquire(ctx context.Context, orderID string) (release func(context.Context) error, err error)
}

// CustomerDirectory resolves customer references to display names.
type CustomerDirectory interface {
	DisplayNames(ctx context.Context, refs []domain.CustomerRef) (map[domain.CustomerRef]string, error)
}

// BookingRequest asks a carrier to pick up a committed shipment.
type BookingRequest struct {
	OrderID     string
	OrderNumber string
	Sequence    int32
	ServiceID   string
	Units       int32
	Notes       string
}

// Booking is the carrier's acknowledgement of a shipment.
type Booking struct {
	Reference      string
	CarrierName    string
	ServiceName    string
	TrackingNumber string
	TrackingURL    string
	LabelURLs      []string
	CostPaid       decimal.Decimal
}

// BookingFor returns the carrier booking of a committed shipment, or false when it is not booked through the gateway.
func BookingFor(event domain.ShipmentCommitted) (BookingRequest, bool) {
	c := event.Carrier
	if c == nil || c.Method != domain.MethodPacklink || c.ServiceID == "" {
		return BookingRequest{}, false
	}
	var units int32
	for _, line := range event.Lines {
		units += line.Quantity
	}
	return BookingRequest{
		OrderID:     event.OrderID,
		OrderNumber: event.OrderNumber,
		Sequence:    event.Sequence,
		ServiceID:   c.ServiceID,
		Units:       units,
		Notes:       c.Notes,
	}, true
}

// Apply copies the carrier acknowledgement onto the stored record.
func (b *Booking) Apply(record *domain.ShipmentRecord) {
	if b == nil || record == nil {
		return
	}
	record.CarrierReference = b.Reference
	if b.CarrierName != "" {
		record.CarrierName = b.CarrierName
	}
	if b.ServiceName != "" {
		record.ServiceName = b.ServiceName
	}
	if b.TrackingNumber != "" {
		record.TrackingNumber = b.TrackingNumber
	}
	if b.TrackingURL != "" {
		record.TrackingURL = b.TrackingURL
	}
	if len(b.LabelURLs) > 0 {
		record.LabelURLs = append([]string(nil), b.LabelURLs...)
	}
	if !b.CostPaid.IsZero() {
		record.CostPaid = b.CostPaid
	}
}

// CarrierGateway books shipments with an external carrier aggregator.
type CarrierGateway interface {
	Book(ctx context.Context, req BookingRequest) (*Booking, error)
}

// DispatchOrchestrator runs the post-commit side effects of a shipment.
type DispatchOrchestrator interface {
	Dispatch(ctx context.Context, event domain.ShipmentCommitted) error
}

// DeliveryUpdate is a carrier tracking notification.
type DeliveryUpdate struct {
	OrderID    string
	Sequence   int32
	Status     domain.DeliveryStatus
	OccurredAt time.Time
}
