package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
)

type normalizedShipmentRequest struct {
	OrderID   string             `json:"orderId"`
	ActorID   string             `json:"actorId"`
	ShippedAt string             `json:"shippedAt,omitempty"`
	Lines     []normalizedLine   `json:"lines"`
	Carrier   *normalizedCarrier `json:"carrier,omitempty"`
}

type normalizedLine struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

type normalizedCarrier struct {
	Method         string `json:"method"`
	CarrierName    string `json:"carrierName"`
	ServiceID      string `json:"serviceId"`
	ServiceName    string `json:"serviceName"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl"`
	CostPaid       string `json:"costPaid"`
	CostCharged    string `json:"costCharged"`
	Notes          string `json:"notes"`
}

// FingerprintShipment builds a deterministic hash of a shipment request, excluding the idempotency key.
func FingerprintShipment(req domain.ShipmentRequest) (string, error) {
	payload, err := json.Marshal(normalizeShipmentRequest(req))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeShipmentRequest(req domain.ShipmentRequest) normalizedShipmentRequest {
	normalized := normalizedShipmentRequest{
		OrderID: req.OrderID,
		ActorID: req.ActorID,
	}
	if req.ShippedAt != nil && !req.ShippedAt.IsZero() {
		normalized.ShippedAt = req.ShippedAt.UTC().Format(time.RFC3339Nano)
	}
	merged := map[string]int64{}
	for _, line := range req.Lines {
		if line.Quantity != 0 {
			merged[line.ItemID] += int64(line.Quantity)
		}
	}
	normalized.Lines = make([]normalizedLine, 0, len(merged))
	for id, qty := range merged {
		normalized.Lines = append(normalized.Lines, normalizedLine{ItemID: id, Quantity: qty})
	}
	sort.Slice(normalized.Lines, func(i, j int) bool { return normalized.Lines[i].ItemID < normalized.Lines[j].ItemID })
	if c := req.Carrier; c != nil {
		normalized.Carrier = &normalizedCarrier{
			Method:         string(c.Method),
			CarrierName:    c.CarrierName,
			ServiceID:      c.ServiceID,
			ServiceName:    c.ServiceName,
			TrackingNumber: c.TrackingNumber,
			TrackingURL:    c.TrackingURL,
			CostPaid:       c.CostPaid.String(),
			CostCharged:    c.CostCharged.String(),
			Notes:          c.Notes,
		}
	}
	return normalized
}
