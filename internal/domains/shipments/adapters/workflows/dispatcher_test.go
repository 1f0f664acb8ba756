package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/memory"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	shipmentworkflows "github.com/Apurer/go-gin-shipment-server/internal/durable/temporal/workflows/shipments"
)

type fakeStarter struct {
	options client.StartWorkflowOptions
	name    interface{}
	args    []interface{}
	err     error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.options = options
	f.name = workflow
	f.args = args
	return nil, f.err
}

type fakeGateway struct {
	err error
}

func (g *fakeGateway) Book(context.Context, ports.BookingRequest) (*ports.Booking, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &ports.Booking{Reference: "REF-1", LabelURLs: []string{"label"}}, nil
}

func event(method domain.ShippingMethod) domain.ShipmentCommitted {
	return domain.ShipmentCommitted{
		BaseEvent:   domain.BaseEvent{Timestamp: time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)},
		OrderID:     "o-1",
		OrderNumber: "SO-1",
		Sequence:    4,
		Lines:       []domain.ShipmentLine{{ItemID: "a", Quantity: 1}},
		Carrier:     &domain.CarrierDetails{Method: method, ServiceID: "svc"},
	}
}

func TestTemporalDispatcher_StartsWorkflowPerSequence(t *testing.T) {
	starter := &fakeStarter{}
	d := newTemporalDispatcher(starter)

	require.NoError(t, d.Dispatch(context.Background(), event(domain.MethodPacklink)))
	require.Equal(t, "shipment-dispatch-o-1-4", starter.options.ID)
	require.Equal(t, shipmentworkflows.DispatchTaskQueue, starter.options.TaskQueue)
	require.Equal(t, shipmentworkflows.DispatchWorkflowName, starter.name)
	require.Len(t, starter.args, 1)
	input, ok := starter.args[0].(shipmentworkflows.DispatchWorkflowInput)
	require.True(t, ok)
	require.Equal(t, int32(4), input.Event.Sequence)
}

func TestTemporalDispatcher_IgnoresDuplicateStart(t *testing.T) {
	starter := &fakeStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("exists", "", "run-1")}
	require.NoError(t, newTemporalDispatcher(starter).Dispatch(context.Background(), event(domain.MethodManual)))

	starter.err = errors.New("unavailable")
	require.Error(t, newTemporalDispatcher(starter).Dispatch(context.Background(), event(domain.MethodManual)))

	var nilDispatcher *TemporalDispatcher
	require.Error(t, nilDispatcher.Dispatch(context.Background(), event(domain.MethodManual)))
}

func TestInlineDispatcher_SavesAndBooks(t *testing.T) {
	records := memory.NewShipmentRecordStore()
	d := NewInlineDispatcher(records, &fakeGateway{})

	require.NoError(t, d.Dispatch(context.Background(), event(domain.MethodPacklink)))
	stored, err := records.Get(context.Background(), "o-1", 4)
	require.NoError(t, err)
	require.Equal(t, "REF-1", stored.CarrierReference)
	require.Equal(t, []string{"label"}, stored.LabelURLs)
}

func TestInlineDispatcher_BookingFailureKeepsRecord(t *testing.T) {
	records := memory.NewShipmentRecordStore()
	d := NewInlineDispatcher(records, &fakeGateway{err: errors.New("carrier down")})

	require.Error(t, d.Dispatch(context.Background(), event(domain.MethodPacklink)))
	stored, err := records.Get(context.Background(), "o-1", 4)
	require.NoError(t, err)
	require.Empty(t, stored.CarrierReference)
	require.Equal(t, domain.MethodPacklink, stored.Method)
}

func TestInlineDispatcher_ManualSkipsGateway(t *testing.T) {
	records := memory.NewShipmentRecordStore()
	d := NewInlineDispatcher(records, &fakeGateway{err: errors.New("must not be called")})
	require.NoError(t, d.Dispatch(context.Background(), event(domain.MethodManual)))
}
