package postgres

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

type salesOrderRecord struct {
	ID                   string     `gorm:"primaryKey;column:id;size:64"`
	OrderNumber          string     `gorm:"column:order_number;size:64;uniqueIndex"`
	Status               string     `gorm:"column:status;type:varchar(32);index"`
	CustomerKind         string     `gorm:"column:customer_kind;type:varchar(32)"`
	CustomerID           string     `gorm:"column:customer_id;size:64"`
	ExpectedDeliveryDate *time.Time `gorm:"column:expected_delivery_date;type:date;index"`
	ShippedAt            *time.Time `gorm:"column:shipped_at;index"`
	ShippedBy            *string    `gorm:"column:shipped_by;size:64"`
	ShipmentCount        int32      `gorm:"column:shipment_count;not null;default:0"`
	Version              int64      `gorm:"column:version;not null;default:0"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (salesOrderRecord) TableName() string { return "sales_orders" }

type salesOrderItemRecord struct {
	ID              string          `gorm:"primaryKey;column:id;size:64"`
	OrderID         string          `gorm:"column:order_id;size:64;index"`
	Position        int32           `gorm:"column:position"`
	ProductID       string          `gorm:"column:product_id;size:64;index"`
	QuantityOrdered int32           `gorm:"column:quantity_ordered;not null"`
	QuantityShipped *int32          `gorm:"column:quantity_shipped;check:chk_sales_order_items_shipped,quantity_shipped >= 0 AND quantity_shipped <= quantity_ordered"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2)"`
}

func (salesOrderItemRecord) TableName() string { return "sales_order_items" }

type productRecord struct {
	ID        string    `gorm:"primaryKey;column:id;size:64"`
	Name      string    `gorm:"column:name"`
	SKU       string    `gorm:"column:sku;size:64;index"`
	StockReal int32     `gorm:"column:stock_real;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (productRecord) TableName() string { return "products" }

type stockMovementRecord struct {
	ID             string    `gorm:"primaryKey;column:id;size:64"`
	ProductID      string    `gorm:"column:product_id;size:64;index"`
	OrderID        string    `gorm:"column:order_id;size:64;uniqueIndex:idx_stock_movements_shipment"`
	ItemID         string    `gorm:"column:item_id;size:64;uniqueIndex:idx_stock_movements_shipment"`
	Sequence       int32     `gorm:"column:sequence;uniqueIndex:idx_stock_movements_shipment"`
	MovementType   string    `gorm:"column:movement_type;type:varchar(16)"`
	QuantityChange int32     `gorm:"column:quantity_change"`
	QuantityBefore int32     `gorm:"column:quantity_before"`
	QuantityAfter  int32     `gorm:"column:quantity_after"`
	PerformedAt    time.Time `gorm:"column:performed_at;index"`
	PerformedBy    string    `gorm:"column:performed_by;size:64"`
}

func (stockMovementRecord) TableName() string { return "stock_movements" }

type idempotencyLine struct {
	ItemID   string `json:"itemId"`
	Quantity int32  `json:"quantity"`
}

type idempotencyRecord struct {
	Key         string            `gorm:"primaryKey;column:key;size:255"`
	RequestHash string            `gorm:"column:request_hash;size:128"`
	OrderID     string            `gorm:"column:order_id;size:64;index"`
	Sequence    int32             `gorm:"column:sequence"`
	Status      string            `gorm:"column:status;type:varchar(32)"`
	ShippedAt   time.Time         `gorm:"column:shipped_at"`
	Lines       []idempotencyLine `gorm:"column:lines;serializer:json"`
	CreatedAt   time.Time         `gorm:"column:created_at;index"`
}

func (idempotencyRecord) TableName() string { return "shipment_idempotency_keys" }

type shipmentRecordRow struct {
	OrderID          string          `gorm:"primaryKey;column:order_id;size:64"`
	Sequence         int32           `gorm:"primaryKey;column:sequence"`
	OrderNumber      string          `gorm:"column:order_number;size:64"`
	Method           string          `gorm:"column:method;type:varchar(32)"`
	CarrierName      string          `gorm:"column:carrier_name"`
	ServiceName      string          `gorm:"column:service_name"`
	TrackingNumber   string          `gorm:"column:tracking_number;index"`
	TrackingURL      string          `gorm:"column:tracking_url"`
	LabelURLs        pq.StringArray  `gorm:"column:label_urls;type:text[]"`
	CarrierReference string          `gorm:"column:carrier_reference"`
	CostPaid         decimal.Decimal `gorm:"column:cost_paid;type:numeric(12,2)"`
	CostCharged      decimal.Decimal `gorm:"column:cost_charged;type:numeric(12,2)"`
	DeliveryStatus   string          `gorm:"column:delivery_status;type:varchar(32)"`
	ShippedAt        time.Time       `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time      `gorm:"column:delivered_at"`
	Notes            string          `gorm:"column:notes"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (shipmentRecordRow) TableName() string { return "shipment_records" }

type organisationRecord struct {
	ID        string `gorm:"primaryKey;column:id;size:64"`
	LegalName string `gorm:"column:legal_name"`
	TradeName string `gorm:"column:trade_name"`
}

func (organisationRecord) TableName() string { return "organisations" }

type individualCustomerRecord struct {
	ID        string `gorm:"primaryKey;column:id;size:64"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

func (individualCustomerRecord) TableName() string { return "individual_customers" }

func toOrderRecord(order *domain.SalesOrder) (salesOrderRecord, []salesOrderItemRecord) {
	rec := salesOrderRecord{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		Status:               string(order.Status),
		CustomerKind:         string(order.Customer.Kind),
		CustomerID:           order.Customer.ID,
		ExpectedDeliveryDate: order.ExpectedDeliveryDate,
		ShippedAt:            order.ShippedAt,
		ShippedBy:            order.ShippedBy,
		ShipmentCount:        order.ShipmentCount,
		Version:              order.Version,
		CreatedAt:            order.CreatedAt,
	}
	items := make([]salesOrderItemRecord, 0, len(order.Items))
	for i, item := range order.Items {
		shipped := item.QuantityShipped
		items = append(items, salesOrderItemRecord{
			ID:              item.ID,
			OrderID:         order.ID,
			Position:        int32(i),
			ProductID:       item.ProductID,
			QuantityOrdered: item.QuantityOrdered,
			QuantityShipped: &shipped,
			UnitPrice:       item.UnitPrice,
		})
	}
	return rec, items
}

func (r salesOrderRecord) toDomain(items []salesOrderItemRecord) *domain.SalesOrder {
	order := &domain.SalesOrder{
		ID:                   r.ID,
		OrderNumber:          r.OrderNumber,
		Status:               domain.Status(r.Status),
		Customer:             domain.CustomerRef{Kind: domain.CustomerKind(r.CustomerKind), ID: r.CustomerID},
		CreatedAt:            r.CreatedAt,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		ShippedAt:            r.ShippedAt,
		ShippedBy:            r.ShippedBy,
		ShipmentCount:        r.ShipmentCount,
		Version:              r.Version,
		Items:                make([]domain.SalesOrderItem, 0, len(items)),
	}
	for _, item := range items {
		order.Items = append(order.Items, item.toDomain())
	}
	return order
}

func (r salesOrderItemRecord) toDomain() domain.SalesOrderItem {
	var shipped int32
	if r.QuantityShipped != nil {
		shipped = *r.QuantityShipped
	}
	return domain.SalesOrderItem{
		ID:              r.ID,
		OrderID:         r.OrderID,
		ProductID:       r.ProductID,
		QuantityOrdered: r.QuantityOrdered,
		QuantityShipped: shipped,
		UnitPrice:       r.UnitPrice,
	}
}

func (r productRecord) toDomain() domain.ProductStock {
	return domain.ProductStock{ProductID: r.ID, Name: r.Name, SKU: r.SKU, StockReal: r.StockReal}
}

func toMovementRecord(mv domain.StockMovement) stockMovementRecord {
	return stockMovementRecord{
		ID:             mv.ID,
		ProductID:      mv.ProductID,
		OrderID:        mv.OrderID,
		ItemID:         mv.ItemID,
		Sequence:       mv.Sequence,
		MovementType:   string(mv.Type),
		QuantityChange: mv.QuantityChange,
		QuantityBefore: mv.QuantityBefore,
		QuantityAfter:  mv.QuantityAfter,
		PerformedAt:    mv.PerformedAt,
		PerformedBy:    mv.PerformedBy,
	}
}

func (r stockMovementRecord) toDomain() domain.StockMovement {
	return domain.StockMovement{
		ID:             r.ID,
		ProductID:      r.ProductID,
		OrderID:        r.OrderID,
		ItemID:         r.ItemID,
		Sequence:       r.Sequence,
		Type:           domain.MovementType(r.MovementType),
		QuantityChange: r.QuantityChange,
		QuantityBefore: r.QuantityBefore,
		QuantityAfter:  r.QuantityAfter,
		PerformedAt:    r.PerformedAt,
		PerformedBy:    r.PerformedBy,
	}
}

func toIdempotencyRecord(rec *domain.Reconciliation, createdAt time.Time) idempotencyRecord {
	lines := make([]idempotencyLine, 0, len(rec.Lines))
	for _, line := range rec.Lines {
		lines = append(lines, idempotencyLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return idempotencyRecord{
		Key:         rec.IdempotencyKey,
		RequestHash: rec.RequestHash,
		OrderID:     rec.OrderID,
		Sequence:    rec.Sequence,
		Status:      string(rec.Status),
		ShippedAt:   rec.ShippedAt,
		Lines:       lines,
		CreatedAt:   createdAt,
	}
}

func (r idempotencyRecord) toPort() *ports.IdempotencyRecord {
	lines := make([]domain.ShipmentLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, domain.ShipmentLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return &ports.IdempotencyRecord{
		Key:         r.Key,
		RequestHash: r.RequestHash,
		OrderID:     r.OrderID,
		Sequence:    r.Sequence,
		Status:      domain.Status(r.Status),
		ShippedAt:   r.ShippedAt,
		Lines:       lines,
		CreatedAt:   r.CreatedAt,
	}
}

func toShipmentRow(record domain.ShipmentRecord) shipmentRecordRow {
	return shipmentRecordRow{
		OrderID:          record.OrderID,
		Sequence:         record.Sequence,
		OrderNumber:      record.OrderNumber,
		Method:           string(record.Method),
		CarrierName:      record.CarrierName,
		ServiceName:      record.ServiceName,
		TrackingNumber:   record.TrackingNumber,
		TrackingURL:      record.TrackingURL,
		LabelURLs:        pq.StringArray(record.LabelURLs),
		CarrierReference: record.CarrierReference,
		CostPaid:         record.CostPaid,
		CostCharged:      record.CostCharged,
		DeliveryStatus:   string(record.DeliveryStatus),
		ShippedAt:        record.ShippedAt,
		DeliveredAt:      record.DeliveredAt,
		Notes:            record.Notes,
	}
}

func (r shipmentRecordRow) toDomain() domain.ShipmentRecord {
	return domain.ShipmentRecord{
		OrderID:          r.OrderID,
		OrderNumber:      r.OrderNumber,
		Sequence:         r.Sequence,
		Method:           domain.ShippingMethod(r.Method),
		CarrierName:      r.CarrierName,
		ServiceName:      r.ServiceName,
		TrackingNumber:   r.TrackingNumber,
		TrackingURL:      r.TrackingURL,
		LabelURLs:        []string(r.LabelURLs),
		CarrierReference: r.CarrierReference,
		CostPaid:         r.CostPaid,
		CostCharged:      r.CostCharged,
		DeliveryStatus:   domain.DeliveryStatus(r.DeliveryStatus),
		ShippedAt:        r.ShippedAt,
		DeliveredAt:      r.DeliveredAt,
		Notes:            r.Notes,
	}
}

// Models lists the tables owned by the shipments adapters, in dependency order.
func Models() []any {
	return []any{
		&salesOrderRecord{},
		&salesOrderItemRecord{},
		&productRecord{},
		&stockMovementRecord{},
		&idempotencyRecord{},
		&shipmentRecordRow{},
		&organisationRecord{},
		&individualCustomerRecord{},
	}
}
