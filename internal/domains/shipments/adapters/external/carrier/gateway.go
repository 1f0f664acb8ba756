package carrier

import (
	"context"
	"errors"
	"fmt"

	carrierclient "github.com/Apurer/go-gin-shipment-server/internal/clients/http/carrier"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

// API is the subset of the carrier client used to book shipments.
type API interface {
	CreateOrder(ctx context.Context, req carrierclient.OrderRequest) (*carrierclient.Order, error)
	GetLabels(ctx context.Context, reference string) ([]string, error)
}

var _ API = (*carrierclient.Client)(nil)

// Gateway implements the outbound carrier booking port.
type Gateway struct {
	api    API
	sender carrierclient.Address
}

// NewGateway wires a carrier client into a booking adapter shipping from sender.
func NewGateway(api API, sender carrierclient.Address) *Gateway {
	return &Gateway{api: api, sender: sender}
}

// Book creates the carrier order and fetches its labels.
func (g *Gateway) Book(ctx context.Context, req ports.BookingRequest) (*ports.Booking, error) {
	if g == nil || g.api == nil {
		return nil, errors.New("carrier gateway not configured")
	}
	order, err := g.api.CreateOrder(ctx, ToOrderRequest(req, g.sender))
	if err != nil {
		return nil, fmt.Errorf("create carrier order: %w", err)
	}
	labels, err := g.api.GetLabels(ctx, order.Reference)
	if err != nil && !carrierclient.IsKind(err, carrierclient.KindNotFound) {
		return nil, fmt.Errorf("fetch carrier labels for %s: %w", order.Reference, err)
	}
	return FromOrder(order, labels), nil
}

var _ ports.CarrierGateway = (*Gateway)(nil)
