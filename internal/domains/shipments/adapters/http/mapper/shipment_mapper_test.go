package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

func TestToDomainRequest(t *testing.T) {
	cost := decimal.RequireFromString("12.40")
	req := ToDomainRequest("o-1", "  key-1 ", ShipmentRequest{
		ShippedBy: " user-7 ",
		Lines:     []ShipmentLine{{ItemID: "a", Quantity: 2}, {ItemID: "b", Quantity: 0}},
		Carrier:   &CarrierDetails{Method: "packlink", ServiceID: "svc-9", CostPaid: &cost},
	})

	require.Equal(t, "o-1", req.OrderID)
	require.Equal(t, "user-7", req.ActorID)
	require.Equal(t, "key-1", req.IdempotencyKey)
	require.Len(t, req.Lines, 2)
	require.NotNil(t, req.Carrier)
	require.Equal(t, domain.MethodPacklink, req.Carrier.Method)
	require.True(t, req.Carrier.CostPaid.Equal(cost))
	require.True(t, req.Carrier.CostCharged.IsZero())
}

func TestFromResult_SumsUnits(t *testing.T) {
	out := FromResult(&ports.ShipmentResult{
		OrderID:  "o-1",
		Sequence: 3,
		Status:   domain.StatusShipped,
		Lines:    []domain.ShipmentLine{{ItemID: "a", Quantity: 2}, {ItemID: "b", Quantity: 5}},
	})
	require.Equal(t, int32(7), out.UnitsShipped)
	require.Equal(t, "shipped", out.Status)
	require.Len(t, out.Lines, 2)
}

func TestFromSummaries_FormatsDeliveryDateAndCustomer(t *testing.T) {
	due := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	rows := FromSummaries([]domain.OrderSummary{{
		Order: &domain.SalesOrder{
			ID:                   "o-1",
			OrderNumber:          "SO-1",
			Status:               domain.StatusConfirmed,
			ExpectedDeliveryDate: &due,
			Customer:             domain.CustomerRef{Kind: domain.CustomerOrganisation, ID: "org-1"},
		},
		CustomerName: "Acme",
		TotalOrdered: 4,
		Urgent:       true,
	}})

	body, err := json.Marshal(rows)
	require.NoError(t, err)
	require.JSONEq(t, `[{
		"id":"o-1","orderNumber":"SO-1","status":"confirmed","createdAt":"0001-01-01T00:00:00Z",
		"expectedDeliveryDate":"2024-06-14","shipmentCount":0,
		"customer":{"kind":"organisation","id":"org-1","name":"Acme"},
		"totalOrdered":4,"totalShipped":0,"urgent":true,"overdue":false
	}]`, string(body))
}

func TestToDeliveryUpdate(t *testing.T) {
	at := time.Date(2024, 6, 13, 15, 0, 0, 0, time.UTC)
	update := ToDeliveryUpdate(TrackingEvent{OrderID: " o-1 ", Sequence: 2, Status: "delivered", OccurredAt: &at})
	require.Equal(t, "o-1", update.OrderID)
	require.Equal(t, domain.DeliveryDelivered, update.Status)
	require.Equal(t, at, update.OccurredAt)
}
