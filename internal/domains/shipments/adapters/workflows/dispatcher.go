package workflows

import (
	"context"
	"errors"
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	shipmentworkflows "github.com/Apurer/go-gin-shipment-server/internal/durable/temporal/workflows/shipments"
)

var (
	_ ports.DispatchOrchestrator = (*TemporalDispatcher)(nil)
	_ ports.DispatchOrchestrator = (*InlineDispatcher)(nil)
)

// workflowStarter is the part of the Temporal client used to start dispatch workflows.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalDispatcher starts the dispatch workflow of each committed shipment.
type TemporalDispatcher struct {
	client    workflowStarter
	taskQueue string
}

// NewTemporalDispatcher wires a Temporal client into the orchestrator.
func NewTemporalDispatcher(c client.Client) *TemporalDispatcher {
	return newTemporalDispatcher(c)
}

func newTemporalDispatcher(c workflowStarter) *TemporalDispatcher {
	return &TemporalDispatcher{client: c, taskQueue: shipmentworkflows.DispatchTaskQueue}
}

// Dispatch starts the workflow without waiting for it. A workflow already started for the same sequence is not an error.
func (d *TemporalDispatcher) Dispatch(ctx context.Context, event domain.ShipmentCommitted) error {
	if d == nil || d.client == nil {
		return errors.New("temporal shipment dispatcher not configured")
	}
	options := client.StartWorkflowOptions{
		ID:        shipmentworkflows.DispatchWorkflowID(event.OrderID, event.Sequence),
		TaskQueue: d.taskQueue,
	}
	input := shipmentworkflows.DispatchWorkflowInput{Event: event, TraceID: workflowTraceID(ctx)}
	if _, err := d.client.ExecuteWorkflow(ctx, options, shipmentworkflows.DispatchWorkflowName, input); err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return fmt.Errorf("start shipment dispatch workflow: %w", err)
	}
	return nil
}

// InlineDispatcher runs the dispatch steps in-process, for tests or when Temporal is unavailable.
type InlineDispatcher struct {
	records ports.ShipmentRecordStore
	gateway ports.CarrierGateway
}

// NewInlineDispatcher wires the record store and an optional carrier gateway.
func NewInlineDispatcher(records ports.ShipmentRecordStore, gateway ports.CarrierGateway) *InlineDispatcher {
	return &InlineDispatcher{records: records, gateway: gateway}
}

// Dispatch saves the shipment record and books the carrier when the shipment asks for it.
func (d *InlineDispatcher) Dispatch(ctx context.Context, event domain.ShipmentCommitted) error {
	if d == nil || d.records == nil {
		return errors.New("inline shipment dispatcher not configured")
	}
	record := domain.NewShipmentRecord(event)
	if err := d.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save shipment record: %w", err)
	}
	req, ok := ports.BookingFor(event)
	if !ok || d.gateway == nil {
		return nil
	}
	booking, err := d.gateway.Book(ctx, req)
	if err != nil {
		return fmt.Errorf("book carrier: %w", err)
	}
	booking.Apply(&record)
	if err := d.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save booked shipment record: %w", err)
	}
	return nil
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.HasTraceID() {
		return ""
	}
	return spanCtx.TraceID().String()
}
