package shipments

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/durable/temporal/sequences"
)

const (
	// DispatchWorkflowName is the public identifier for registering the workflow.
	DispatchWorkflowName = "shipments.workflows.Dispatch"
	// DispatchTaskQueue is the queue consumed by the worker processing shipment dispatch.
	DispatchTaskQueue = "SHIPMENT_DISPATCH"
)

// DispatchWorkflowInput carries the committed shipment.
type DispatchWorkflowInput struct {
	Event   domain.ShipmentCommitted
	TraceID string
}

// DispatchWorkflowID is one workflow per order shipment sequence.
func DispatchWorkflowID(orderID string, sequence int32) string {
	return fmt.Sprintf("shipment-dispatch-%s-%d", orderID, sequence)
}

// DispatchWorkflow runs the post-commit side effects of a shipment.
func DispatchWorkflow(ctx workflow.Context, input DispatchWorkflowInput) (*domain.ShipmentRecord, error) {
	logger := workflow.GetLogger(ctx)
	orderID := input.Event.OrderID
	logger.Info("DispatchWorkflow started", withTraceID(input.TraceID, "orderId", orderID, "sequence", input.Event.Sequence)...)
	record, err := sequences.RunShipmentDispatchSequence(ctx, input.Event)
	if err != nil {
		logger.Error("DispatchWorkflow failed", withTraceID(input.TraceID, "orderId", orderID, "error", err)...)
		return record, err
	}
	logger.Info("DispatchWorkflow completed", withTraceID(input.TraceID, "orderId", orderID, "sequence", input.Event.Sequence)...)
	return record, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
