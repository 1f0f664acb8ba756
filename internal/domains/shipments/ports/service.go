package ports

import (
	"context"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
)

// ShipmentPlan is the shippable view of an order.
type ShipmentPlan struct {
	Order *domain.SalesOrder
	Items []domain.ShipmentItem
}

// ShipmentResult describes a committed (or replayed) shipment.
type ShipmentResult struct {
	OrderID        string
	OrderNumber    string
	Sequence       int32
	PreviousStatus domain.Status
	Status         domain.Status
	ShippedAt      time.Time
	Lines          []domain.ShipmentLine
	Replayed       bool
}

// UnitsShipped sums the quantities of every line.
func (r *ShipmentResult) UnitsShipped() int32 {
	var total int32
	for _, line := range r.Lines {
		total += line.Quantity
	}
	return total
}

// Service is the application port of the shipments bounded context.
type Service interface {
	PrepareShipment(ctx context.Context, orderID string) (*ShipmentPlan, error)
	ValidateShipment(ctx context.Context, req domain.ShipmentRequest) error
	ShipItems(ctx context.Context, req domain.ShipmentRequest) (*ShipmentResult, error)
	ShipmentHistory(ctx context.Context, orderID string) ([]domain.ShipmentHistoryEntry, error)
	Stats(ctx context.Context, asOf time.Time) (domain.ShipmentStats, error)
	ListReadyForShipment(ctx context.Context, filter domain.ReadyFilter) ([]domain.OrderSummary, error)
	ListShippedOrders(ctx context.Context, filter domain.ShippedFilter) ([]domain.OrderSummary, error)
	UpdateDeliveryStatus(ctx context.Context, update DeliveryUpdate) (*domain.ShipmentRecord, error)
}
