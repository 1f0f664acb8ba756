package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	shipmentactivities "github.com/Apurer/go-gin-shipment-server/internal/durable/temporal/activities/shipments"
)

// RunShipmentDispatchSequence stores the carrier record of a shipment and books the carrier when requested.
func RunShipmentDispatchSequence(ctx workflow.Context, event domain.ShipmentCommitted) (*domain.ShipmentRecord, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("shipment dispatch sequence started", "orderId", event.OrderID, "sequence", event.Sequence)
	recordOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	}
	bookOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		HeartbeatTimeout:    20 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}

	record := domain.NewShipmentRecord(event)
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, recordOptions), shipmentactivities.RecordShipmentActivityName, record).Get(ctx, nil); err != nil {
		logger.Error("shipment dispatch sequence failed to record", "orderId", event.OrderID, "error", err)
		return nil, err
	}

	booking, ok := ports.BookingFor(event)
	if !ok {
		logger.Info("shipment dispatch sequence completed", "orderId", event.OrderID, "sequence", event.Sequence)
		return &record, nil
	}
	var booked domain.ShipmentRecord
	input := shipmentactivities.BookCarrierInput{Record: record, Booking: booking}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, bookOptions), shipmentactivities.BookCarrierActivityName, input).Get(ctx, &booked); err != nil {
		logger.Error("shipment dispatch sequence failed to book carrier", "orderId", event.OrderID, "error", err)
		return &record, err
	}
	logger.Info("shipment dispatch sequence booked", "orderId", event.OrderID, "reference", booked.CarrierReference)
	return &booked, nil
}
