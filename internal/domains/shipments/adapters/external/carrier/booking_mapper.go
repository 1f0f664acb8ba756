package carrier

import (
	"fmt"
	"strings"

	carrierclient "github.com/Apurer/go-gin-shipment-server/internal/clients/http/carrier"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

// ToOrderRequest converts a booking into the carrier order payload.
func ToOrderRequest(req ports.BookingRequest, sender carrierclient.Address) carrierclient.OrderRequest {
	ref := strings.TrimSpace(req.OrderNumber)
	if ref == "" {
		ref = req.OrderID
	}
	return carrierclient.OrderRequest{
		ServiceID:   req.ServiceID,
		OrderRef:    fmt.Sprintf("%s-%d", ref, req.Sequence),
		Content:     fmt.Sprintf("%d item(s)", req.Units),
		From:        sender,
		ContentInfo: req.Notes,
	}
}

// FromOrder maps the carrier acknowledgement into a booking.
func FromOrder(order *carrierclient.Order, labels []string) *ports.Booking {
	return &ports.Booking{
		Reference:      order.Reference,
		CarrierName:    order.CarrierName,
		ServiceName:    order.ServiceName,
		TrackingNumber: order.TrackingNumber,
		TrackingURL:    order.TrackingURL,
		LabelURLs:      append([]string(nil), labels...),
		CostPaid:       order.TotalPrice,
	}
}
