package mapper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

// ShipmentLine is one requested line of a shipment.
type ShipmentLine struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int32  `json:"quantity" binding:"gte=0"`
}

// CarrierDetails is the optional carrier block submitted with a shipment.
type CarrierDetails struct {
	Method         string           `json:"method,omitempty" binding:"omitempty,oneof=packlink mondial_relay chronotruck manual"`
	CarrierName    string           `json:"carrierName,omitempty"`
	ServiceID      string           `json:"serviceId,omitempty"`
	ServiceName    string           `json:"serviceName,omitempty"`
	TrackingNumber string           `json:"trackingNumber,omitempty"`
	TrackingURL    string           `json:"trackingUrl,omitempty" binding:"omitempty,url"`
	CostPaid       *decimal.Decimal `json:"costPaid,omitempty"`
	CostCharged    *decimal.Decimal `json:"costCharged,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// ShipmentRequest is the body of the ship and validate endpoints.
type ShipmentRequest struct {
	ShippedBy string          `json:"shippedBy" binding:"required"`
	ShippedAt *time.Time      `json:"shippedAt,omitempty"`
	Lines     []ShipmentLine  `json:"lines" binding:"required,dive"`
	Carrier   *CarrierDetails `json:"carrier,omitempty"`
}

// ToDomainRequest maps a transport request into the domain command.
func ToDomainRequest(orderID, idempotencyKey string, payload ShipmentRequest) domain.ShipmentRequest {
	req := domain.ShipmentRequest{
		OrderID:        orderID,
		ActorID:        strings.TrimSpace(payload.ShippedBy),
		ShippedAt:      payload.ShippedAt,
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
	for _, line := range payload.Lines {
		req.Lines = append(req.Lines, domain.ShipmentLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	if c := payload.Carrier; c != nil {
		req.Carrier = &domain.CarrierDetails{
			Method:         domain.ShippingMethod(c.Method),
			CarrierName:    c.CarrierName,
			ServiceID:      c.ServiceID,
			ServiceName:    c.ServiceName,
			TrackingNumber: c.TrackingNumber,
			TrackingURL:    c.TrackingURL,
			CostPaid:       orZero(c.CostPaid),
			CostCharged:    orZero(c.CostCharged),
			Notes:          c.Notes,
		}
	}
	return req
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// ShipmentResult is returned after a committed or replayed shipment.
type ShipmentResult struct {
	OrderID        string         `json:"orderId"`
	OrderNumber    string         `json:"orderNumber,omitempty"`
	Sequence       int32          `json:"sequence"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	Status         string         `json:"status"`
	ShippedAt      time.Time      `json:"shippedAt"`
	Lines          []ShipmentLine `json:"lines"`
	UnitsShipped   int32          `json:"unitsShipped"`
	Replayed       bool           `json:"replayed"`
}

// FromResult maps the application result to its transport shape.
func FromResult(result *ports.ShipmentResult) ShipmentResult {
	out := ShipmentResult{
		OrderID:        result.OrderID,
		OrderNumber:    result.OrderNumber,
		Sequence:       result.Sequence,
		PreviousStatus: string(result.PreviousStatus),
		Status:         string(result.Status),
		ShippedAt:      result.ShippedAt,
		Lines:          make([]ShipmentLine, 0, len(result.Lines)),
		UnitsShipped:   result.UnitsShipped(),
		Replayed:       result.Replayed,
	}
	for _, line := range result.Lines {
		out.Lines = append(out.Lines, ShipmentLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return out
}

// Customer is the resolved customer of a worklist row.
type Customer struct {
	Kind string `json:"kind,omitempty"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// OrderHeader is the order part of a shipment plan or worklist row.
type OrderHeader struct {
	ID                   string     `json:"id"`
	OrderNumber          string     `json:"orderNumber"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"createdAt"`
	ExpectedDeliveryDate *string    `json:"expectedDeliveryDate,omitempty"`
	ShippedAt            *time.Time `json:"shippedAt,omitempty"`
	ShippedBy            *string    `json:"shippedBy,omitempty"`
	ShipmentCount        int32      `json:"shipmentCount"`
}

func fromOrder(order *domain.SalesOrder) OrderHeader {
	header := OrderHeader{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
		ShippedAt:     order.ShippedAt,
		ShippedBy:     order.ShippedBy,
		ShipmentCount: order.ShipmentCount,
	}
	if order.ExpectedDeliveryDate != nil {
		date := order.ExpectedDeliveryDate.Format(time.DateOnly)
		header.ExpectedDeliveryDate = &date
	}
	return header
}

// ShipmentItem is one line of a shipment plan.
type ShipmentItem struct {
	ItemID            string          `json:"itemId"`
	ProductID         string          `json:"productId"`
	ProductName       string          `json:"productName"`
	SKU               string          `json:"sku,omitempty"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	QuantityOrdered   int32           `json:"quantityOrdered"`
	QuantityShipped   int32           `json:"quantityShipped"`
	QuantityRemaining int32           `json:"quantityRemaining"`
	StockAvailable    int32           `json:"stockAvailable"`
	QuantityToShip    int32           `json:"quantityToShip"`
}

// ShipmentPlan is the shippable view of an order.
type ShipmentPlan struct {
	Order OrderHeader    `json:"order"`
	Items []ShipmentItem `json:"items"`
}

// FromPlan maps a shipment plan to its transport shape.
func FromPlan(plan *ports.ShipmentPlan) ShipmentPlan {
	out := ShipmentPlan{Order: fromOrder(plan.Order), Items: make([]ShipmentItem, 0, len(plan.Items))}
	for _, item := range plan.Items {
		out.Items = append(out.Items, ShipmentItem{
			ItemID:            item.ItemID,
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			SKU:               item.SKU,
			UnitPrice:         item.UnitPrice,
			QuantityOrdered:   item.QuantityOrdered,
			QuantityShipped:   item.QuantityShipped,
			QuantityRemaining: item.QuantityRemaining,
			StockAvailable:    item.StockAvailable,
			QuantityToShip:    item.QuantityToShip,
		})
	}
	return out
}

// HistoryItem is one product line of a past shipment.
type HistoryItem struct {
	ItemID      string `json:"itemId"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	SKU         string `json:"sku,omitempty"`
	Quantity    int32  `json:"quantity"`
}

// HistoryEntry describes one past shipment.
type HistoryEntry struct {
	Sequence       int32           `json:"sequence"`
	ShippedAt      time.Time       `json:"shippedAt"`
	ShippedBy      string          `json:"shippedBy"`
	Method         string          `json:"method,omitempty"`
	CarrierName    string          `json:"carrierName,omitempty"`
	ServiceName    string          `json:"serviceName,omitempty"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	TrackingURL    string          `json:"trackingUrl,omitempty"`
	LabelURLs      []string        `json:"labelUrls,omitempty"`
	CostPaid       decimal.Decimal `json:"costPaid"`
	CostCharged    decimal.Decimal `json:"costCharged"`
	DeliveryStatus string          `json:"deliveryStatus,omitempty"`
	DeliveredAt    *time.Time      `json:"deliveredAt,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Items          []HistoryItem   `json:"items"`
	TotalQuantity  int32           `json:"totalQuantity"`
}

// FromHistory maps history entries to their transport shape.
func FromHistory(entries []domain.ShipmentHistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		entry := HistoryEntry{
			Sequence:       e.Sequence,
			ShippedAt:      e.ShippedAt,
			ShippedBy:      e.ShippedBy,
			Method:         string(e.Method),
			CarrierName:    e.CarrierName,
			ServiceName:    e.ServiceName,
			TrackingNumber: e.TrackingNumber,
			TrackingURL:    e.TrackingURL,
			LabelURLs:      e.LabelURLs,
			CostPaid:       e.CostPaid,
			CostCharged:    e.CostCharged,
			DeliveryStatus: string(e.DeliveryStatus),
			DeliveredAt:    e.DeliveredAt,
			Notes:          e.Notes,
			Items:          make([]HistoryItem, 0, len(e.Items)),
			TotalQuantity:  e.TotalQuantity,
		}
		for _, item := range e.Items {
			entry.Items = append(entry.Items, HistoryItem(item))
		}
		out = append(out, entry)
	}
	return out
}

// Stats are the dashboard counters.
type Stats struct {
	Pending        int64 `json:"pending"`
	Partial        int64 `json:"partial"`
	CompletedToday int64 `json:"completedToday"`
	Overdue        int64 `json:"overdue"`
	Urgent         int64 `json:"urgent"`
}

// FromStats maps the dashboard counters.
func FromStats(stats domain.ShipmentStats) Stats {
	return Stats(stats)
}

// OrderSummary is one worklist row.
type OrderSummary struct {
	OrderHeader
	Customer     *Customer `json:"customer,omitempty"`
	TotalOrdered int32     `json:"totalOrdered"`
	TotalShipped int32     `json:"totalShipped"`
	Urgent       bool      `json:"urgent"`
	Overdue      bool      `json:"overdue"`
}

// FromSummaries maps worklist rows.
func FromSummaries(rows []domain.OrderSummary) []OrderSummary {
	out := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		summary := OrderSummary{
			OrderHeader:  fromOrder(row.Order),
			TotalOrdered: row.TotalOrdered,
			TotalShipped: row.TotalShipped,
			Urgent:       row.Urgent,
			Overdue:      row.Overdue,
		}
		if ref := row.Order.Customer; !ref.IsZero() {
			summary.Customer = &Customer{Kind: string(ref.Kind), ID: ref.ID, Name: row.CustomerName}
		}
		out = append(out, summary)
	}
	return out
}

// TrackingEvent is a carrier webhook notification.
type TrackingEvent struct {
	OrderID    string     `json:"orderId" binding:"required"`
	Sequence   int32      `json:"sequence" binding:"required,gt=0"`
	Status     string     `json:"status" binding:"required,oneof=pending in_transit delivered incident returned"`
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
}

// ToDeliveryUpdate maps a tracking event to the application command.
func ToDeliveryUpdate(event TrackingEvent) ports.DeliveryUpdate {
	update := ports.DeliveryUpdate{
		OrderID:  strings.TrimSpace(event.OrderID),
		Sequence: event.Sequence,
		Status:   domain.DeliveryStatus(event.Status),
	}
	if event.OccurredAt != nil {
		update.OccurredAt = *event.OccurredAt
	}
	return update
}

// ShipmentRecord is the stored carrier record returned by the webhook.
type ShipmentRecord struct {
	OrderID        string     `json:"orderId"`
	Sequence       int32      `json:"sequence"`
	Method         string     `json:"method"`
	CarrierName    string     `json:"carrierName,omitempty"`
	TrackingNumber string     `json:"trackingNumber,omitempty"`
	DeliveryStatus string     `json:"deliveryStatus"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}

// FromRecord maps a stored shipment record.
func FromRecord(record *domain.ShipmentRecord) ShipmentRecord {
	return ShipmentRecord{
		OrderID:        record.OrderID,
		Sequence:       record.Sequence,
		Method:         string(record.Method),
		CarrierName:    record.CarrierName,
		TrackingNumber: record.TrackingNumber,
		DeliveryStatus: string(record.DeliveryStatus),
		DeliveredAt:    record.DeliveredAt,
	}
}
