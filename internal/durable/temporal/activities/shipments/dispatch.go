package shipments

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	carrierclient "github.com/Apurer/go-gin-shipment-server/internal/clients/http/carrier"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

const (
	// RecordShipmentActivityName stores the carrier record of a committed shipment.
	RecordShipmentActivityName = "shipments.activities.RecordShipment"
	// BookCarrierActivityName books the shipment with the carrier gateway and stores the enriched record.
	BookCarrierActivityName = "shipments.activities.BookCarrier"
)

// BookCarrierInput carries the stored record and the booking to place.
type BookCarrierInput struct {
	Record  domain.ShipmentRecord
	Booking ports.BookingRequest
}

// Activities groups the post-commit side effects of a shipment.
type Activities struct {
	records ports.ShipmentRecordStore
	gateway ports.CarrierGateway
}

// NewActivities wires the record store and the optional carrier gateway.
func NewActivities(records ports.ShipmentRecordStore, gateway ports.CarrierGateway) *Activities {
	return &Activities{records: records, gateway: gateway}
}

// RecordShipment upserts the carrier record keyed by order and sequence.
func (a *Activities) RecordShipment(ctx context.Context, record domain.ShipmentRecord) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.records == nil {
		logger.Error("record shipment activity not initialized", "orderId", record.OrderID)
		return errors.New("record shipment activity not initialized")
	}
	if err := a.records.Save(ctx, record); err != nil {
		logger.Error("RecordShipment failed", "orderId", record.OrderID, "sequence", record.Sequence, "error", err)
		return err
	}
	logger.Info("RecordShipment completed", "orderId", record.OrderID, "sequence", record.Sequence)
	return nil
}

// BookCarrier books the shipment once and saves the enriched record.
func (a *Activities) BookCarrier(ctx context.Context, input BookCarrierInput) (*domain.ShipmentRecord, error) {
	logger := activity.GetLogger(ctx)
	record := input.Record
	if a == nil || a.records == nil {
		return nil, errors.New("book carrier activity not initialized")
	}
	if a.gateway == nil {
		logger.Info("carrier gateway not configured; skipping booking", "orderId", record.OrderID)
		return &record, nil
	}

	var hb bookingHeartbeat
	if activity.HasHeartbeatDetails(ctx) {
		_ = activity.GetHeartbeatDetails(ctx, &hb)
	}
	booking := hb.Booking
	if booking == nil {
		var err error
		booking, err = a.gateway.Book(ctx, input.Booking)
		if err != nil {
			logger.Error("BookCarrier failed", "orderId", record.OrderID, "sequence", record.Sequence, "error", err)
			return nil, classifyCarrierError(err)
		}
		activity.RecordHeartbeat(ctx, bookingHeartbeat{Booking: booking})
	} else {
		logger.Info("BookCarrier reusing booking from prior attempt", "orderId", record.OrderID, "reference", booking.Reference)
	}

	booking.Apply(&record)
	if err := a.records.Save(ctx, record); err != nil {
		logger.Error("BookCarrier failed to store booking", "orderId", record.OrderID, "error", err)
		return nil, err
	}
	logger.Info("BookCarrier completed", "orderId", record.OrderID, "sequence", record.Sequence, "reference", booking.Reference)
	return &record, nil
}

type bookingHeartbeat struct {
	Booking *ports.Booking
}

func classifyCarrierError(err error) error {
	var carrierErr *carrierclient.Error
	if errors.As(err, &carrierErr) && !carrierErr.Retryable() {
		return temporal.NewNonRetryableApplicationError(err.Error(), string(carrierErr.Kind), err)
	}
	return err
}
