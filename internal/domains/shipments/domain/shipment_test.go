package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleOrder(status Status, items ...SalesOrderItem) *SalesOrder {
	return &SalesOrder{
		ID:          "order-1",
		OrderNumber: "SO-2024-0001",
		Status:      status,
		CreatedAt:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Items:       items,
	}
}

func item(id, product string, ordered, shipped int32) SalesOrderItem {
	return SalesOrderItem{
		ID:              id,
		OrderID:         "order-1",
		ProductID:       product,
		QuantityOrdered: ordered,
		QuantityShipped: shipped,
		UnitPrice:       decimal.RequireFromString("129.90"),
	}
}

func TestPrepareShipmentItems_BoundsDefaultByRemainingAndStock(t *testing.T) {
	order := sampleOrder(StatusPartiallyShipped,
		item("i1", "p1", 10, 4),
		item("i2", "p2", 5, 0),
		item("i3", "p3", 2, 2),
	)
	stock := map[string]ProductStock{
		"p1": {ProductID: "p1", Name: "Oak table", SKU: "TAB-OAK", StockReal: 100},
		"p2": {ProductID: "p2", Name: "Linen chair", SKU: "CHR-LIN", StockReal: 3},
		"p3": {ProductID: "p3", Name: "Lamp", SKU: "LMP-01", StockReal: -4},
	}

	items := PrepareShipmentItems(order, stock)
	require.Len(t, items, 3)

	require.Equal(t, int32(6), items[0].QuantityRemaining)
	require.Equal(t, int32(6), items[0].QuantityToShip)
	require.Equal(t, "Oak table", items[0].ProductName)

	require.Equal(t, int32(5), items[1].QuantityRemaining)
	require.Equal(t, int32(3), items[1].QuantityToShip)

	require.Equal(t, int32(0), items[2].QuantityRemaining)
	require.Equal(t, int32(0), items[2].QuantityToShip)
	require.Equal(t, int32(-4), items[2].StockAvailable)
}

func TestPrepareShipmentItems_MissingStockDefaultsToZero(t *testing.T) {
	order := sampleOrder(StatusConfirmed, item("i1", "p1", 3, 0))
	items := PrepareShipmentItems(order, nil)
	require.Len(t, items, 1)
	require.Equal(t, int32(3), items[0].QuantityRemaining)
	require.Equal(t, int32(0), items[0].QuantityToShip)
}

func TestPrepareShipmentItems_ClampsOvershippedLegacyRows(t *testing.T) {
	order := sampleOrder(StatusShipped, item("i1", "p1", 2, 3))
	items := PrepareShipmentItems(order, map[string]ProductStock{"p1": {StockReal: 10}})
	require.Equal(t, int32(0), items[0].QuantityRemaining)
}

func TestNormalizedLines(t *testing.T) {
	req := ShipmentRequest{Lines: []ShipmentLine{
		{ItemID: "i1", Quantity: 2},
		{ItemID: "i2", Quantity: 0},
		{ItemID: "i1", Quantity: 3},
		{ItemID: "i3", Quantity: 1},
	}}
	lines, err := req.NormalizedLines()
	require.NoError(t, err)
	require.Equal(t, []ShipmentLine{{ItemID: "i1", Quantity: 5}, {ItemID: "i3", Quantity: 1}}, lines)
}

func TestNormalizedLines_EmptyAndNegative(t *testing.T) {
	_, err := ShipmentRequest{}.NormalizedLines()
	require.ErrorIs(t, err, ErrEmptyRequest)

	_, err = ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1"}, {ItemID: "i2"}}}.NormalizedLines()
	require.ErrorIs(t, err, ErrEmptyRequest)

	_, err = ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1", Quantity: -1}}}.NormalizedLines()
	require.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestValidate_CheckOrder(t *testing.T) {
	ledger := &Ledger{Order: sampleOrder(StatusShipped, item("i1", "p1", 2, 2))}

	// empty wins over state
	_, err := Validate(ledger, ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1"}}})
	require.ErrorIs(t, err, ErrEmptyRequest)

	// state wins over unknown item
	_, err = Validate(ledger, ShipmentRequest{Lines: []ShipmentLine{{ItemID: "nope", Quantity: 1}}})
	require.ErrorIs(t, err, ErrInvalidOrderState)
	var stateErr *InvalidOrderStateError
	require.True(t, errors.As(err, &stateErr))
	require.Equal(t, StatusShipped, stateErr.Status)

	// unknown item wins over over-shipment on another line
	ledger.Order.Status = StatusPartiallyShipped
	ledger.Order.Items = []SalesOrderItem{item("i1", "p1", 2, 1)}
	_, err = Validate(ledger, ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1", Quantity: 9}, {ItemID: "nope", Quantity: 1}}})
	require.ErrorIs(t, err, ErrItemNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidate_OverShipmentReportsExcess(t *testing.T) {
	ledger := &Ledger{Order: sampleOrder(StatusPartiallyShipped, item("i1", "p1", 10, 4))}
	_, err := Validate(ledger, ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1", Quantity: 7}}})
	require.ErrorIs(t, err, ErrOverShipment)

	var over *OverShipmentError
	require.True(t, errors.As(err, &over))
	require.Equal(t, "i1", over.ItemID)
	require.Equal(t, int32(6), over.Remaining)
	require.Equal(t, int32(1), over.Excess())
}

func TestValidate_DuplicateLinesAreSummedBeforeBoundCheck(t *testing.T) {
	ledger := &Ledger{Order: sampleOrder(StatusConfirmed, item("i1", "p1", 4, 0))}
	_, err := Validate(ledger, ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1", Quantity: 3}, {ItemID: "i1", Quantity: 2}}})
	require.ErrorIs(t, err, ErrOverShipment)
}

func TestValidate_DuplicateLinesOverflowingInt32AreRejected(t *testing.T) {
	ledger := &Ledger{Order: sampleOrder(StatusPartiallyShipped, item("i1", "p1", 10, 8))}
	_, err := Validate(ledger, ShipmentRequest{Lines: []ShipmentLine{
		{ItemID: "i1", Quantity: math.MaxInt32},
		{ItemID: "i1", Quantity: math.MaxInt32 - 2},
	}})
	require.ErrorIs(t, err, ErrQuantityOutOfRange)

	lines, err := ShipmentRequest{Lines: []ShipmentLine{
		{ItemID: "i1", Quantity: math.MaxInt32 - 1},
		{ItemID: "i1", Quantity: 1},
	}}.NormalizedLines()
	require.NoError(t, err)
	require.Equal(t, []ShipmentLine{{ItemID: "i1", Quantity: math.MaxInt32}}, lines)
}

func TestValidateLines_RejectsNonPositiveQuantities(t *testing.T) {
	order := sampleOrder(StatusConfirmed, item("i1", "p1", 4, 0))
	require.ErrorIs(t, ValidateLines(order, []ShipmentLine{{ItemID: "i1", Quantity: -4}}), ErrQuantityOutOfRange)
	require.ErrorIs(t, ValidateLines(order, []ShipmentLine{{ItemID: "i1"}}), ErrQuantityOutOfRange)
}

func TestValidate_NilLedgerIsNotFound(t *testing.T) {
	_, err := Validate(nil, ShipmentRequest{Lines: []ShipmentLine{{ItemID: "i1", Quantity: 1}}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeriveStatus(t *testing.T) {
	require.Equal(t, StatusShipped, DeriveStatus([]SalesOrderItem{item("a", "p", 2, 2), item("b", "p", 1, 1)}))
	require.Equal(t, StatusPartiallyShipped, DeriveStatus([]SalesOrderItem{item("a", "p", 2, 1), item("b", "p", 1, 0)}))
	require.Equal(t, StatusConfirmed, DeriveStatus([]SalesOrderItem{item("a", "p", 2, 0)}))
}
