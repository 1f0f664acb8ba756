package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ShippingMethod names how a shipment leaves the warehouse.
type ShippingMethod string

const (
	MethodPacklink     ShippingMethod = "packlink"
	MethodMondialRelay ShippingMethod = "mondial_relay"
	MethodChronotruck  ShippingMethod = "chronotruck"
	MethodManual       ShippingMethod = "manual"
)

// Valid reports whether the method is known.
func (m ShippingMethod) Valid() bool {
	switch m {
	case MethodPacklink, MethodMondialRelay, MethodChronotruck, MethodManual:
		return true
	default:
		return false
	}
}

// CarrierDetails is the optional carrier metadata submitted with a shipment.
type CarrierDetails struct {
	Method         ShippingMethod
	CarrierName    string
	ServiceID      string
	ServiceName    string
	TrackingNumber string
	TrackingURL    string
	CostPaid       decimal.Decimal
	CostCharged    decimal.Decimal
	Notes          string
}

// ShipmentLine asks to ship a quantity of one order item.
type ShipmentLine struct {
	ItemID   string
	Quantity int32
}

// ShipmentRequest is a user-submitted instruction to record a physical shipment.
type ShipmentRequest struct {
	OrderID        string
	ActorID        string
	ShippedAt      *time.Time
	Lines          []ShipmentLine
	IdempotencyKey string
	Carrier        *CarrierDetails
}

// NormalizedLines drops zero lines and merges duplicates, keeping first-seen order.
func (r ShipmentRequest) NormalizedLines() ([]ShipmentLine, error) {
	index := make(map[string]int, len(r.Lines))
	lines := make([]ShipmentLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		if line.Quantity < 0 {
			return nil, ErrNegativeQuantity
		}
		if line.Quantity == 0 {
			continue
		}
		if pos, ok := index[line.ItemID]; ok {
			total := int64(lines[pos].Quantity) + int64(line.Quantity)
			if total > math.MaxInt32 {
				return nil, fmt.Errorf("item %s: %w", line.ItemID, ErrQuantityOutOfRange)
			}
			lines[pos].Quantity = int32(total)
			continue
		}
		index[line.ItemID] = len(lines)
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyRequest
	}
	return lines, nil
}

// ShipmentItem is the shippable view of one order line.
type ShipmentItem struct {
	ItemID            string
	ProductID         string
	ProductName       string
	SKU               string
	UnitPrice         decimal.Decimal
	QuantityOrdered   int32
	QuantityShipped   int32
	QuantityRemaining int32
	StockAvailable    int32
	QuantityToShip    int32
}

// PrepareShipmentItems derives the remaining quantity and a stock-bounded default for every line.
func PrepareShipmentItems(order *SalesOrder, stock map[string]ProductStock) []ShipmentItem {
	if order == nil {
		return nil
	}
	items := make([]ShipmentItem, 0, len(order.Items))
	for _, line := range order.Items {
		product := stock[line.ProductID]
		available := product.StockReal
		if available < 0 {
			available = 0
		}
		remaining := line.Remaining()
		items = append(items, ShipmentItem{
			ItemID:            line.ID,
			ProductID:         line.ProductID,
			ProductName:       product.Name,
			SKU:               product.SKU,
			UnitPrice:         line.UnitPrice,
			QuantityOrdered:   line.QuantityOrdered,
			QuantityShipped:   line.QuantityShipped,
			QuantityRemaining: remaining,
			StockAvailable:    product.StockReal,
			QuantityToShip:    min(remaining, available),
		})
	}
	return items
}

// ValidateLines checks normalized lines against the current ledger state.
func ValidateLines(order *SalesOrder, lines []ShipmentLine) error {
	if order == nil {
		return ErrOrderNotFound
	}
	if !order.Status.Shippable() {
		return &InvalidOrderStateError{OrderID: order.ID, Status: order.Status}
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("item %s: %w", line.ItemID, ErrQuantityOutOfRange)
		}
		if _, ok := order.Item(line.ItemID); !ok {
			return &ItemNotFoundError{OrderID: order.ID, ItemID: line.ItemID}
		}
	}
	for _, line := range lines {
		item, _ := order.Item(line.ItemID)
		if remaining := item.Remaining(); line.Quantity > remaining {
			return &OverShipmentError{ItemID: line.ItemID, Requested: line.Quantity, Remaining: remaining}
		}
	}
	return nil
}

// Validate runs the full ordered check list of a request against a ledger read.
func Validate(ledger *Ledger, req ShipmentRequest) ([]ShipmentLine, error) {
	lines, err := req.NormalizedLines()
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, ErrOrderNotFound
	}
	if err := ValidateLines(ledger.Order, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// DeriveStatus computes the fulfillment status from item quantities.
func DeriveStatus(items []SalesOrderItem) Status {
	allShipped := len(items) > 0
	anyShipped := false
	for _, item := range items {
		if !item.FullyShipped() {
			allShipped = false
		}
		if item.QuantityShipped > 0 {
			anyShipped = true
		}
	}
	switch {
	case allShipped:
		return StatusShipped
	case anyShipped:
		return StatusPartiallyShipped
	default:
		return StatusConfirmed
	}
}
