package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/application"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

const tracerName = "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/observability/service"

// Service decorates the shipments application port with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// PrepareShipment computes the shippable view of an order.
func (s *Service) PrepareShipment(ctx context.Context, orderID string) (*ports.ShipmentPlan, error) {
	ctx, span := s.startSpan(ctx, "Service.PrepareShipment", attribute.String("order.id", orderID))
	defer span.End()

	result, err := s.inner.PrepareShipment(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to prepare shipment", slog.String("order.id", orderID))
	}
	span.SetAttributes(attribute.Int("shipment.items.count", len(result.Items)))
	return result, nil
}

// ValidateShipment runs the dry-run validation.
func (s *Service) ValidateShipment(ctx context.Context, req domain.ShipmentRequest) error {
	ctx, span := s.startSpan(ctx, "Service.ValidateShipment",
		attribute.String("order.id", req.OrderID),
		attribute.Int("shipment.lines.count", len(req.Lines)),
	)
	defer span.End()

	if err := s.inner.ValidateShipment(ctx, req); err != nil {
		span.SetAttributes(attribute.String("shipment.rejection", rejectionReason(err)))
		return s.handleError(ctx, span, err, "shipment validation failed", slog.String("order.id", req.OrderID))
	}
	return nil
}

// ShipItems commits a shipment with instrumentation.
func (s *Service) ShipItems(ctx context.Context, req domain.ShipmentRequest) (*ports.ShipmentResult, error) {
	ctx, span := s.startSpan(ctx, "Service.ShipItems",
		attribute.String("order.id", req.OrderID),
		attribute.Int("shipment.lines.count", len(req.Lines)),
		attribute.Bool("shipment.idempotent", req.IdempotencyKey != ""),
	)
	defer span.End()

	s.logInfo(ctx, "shipping items", slog.String("order.id", req.OrderID), slog.Int("lines", len(req.Lines)))
	result, err := s.inner.ShipItems(ctx, req)
	if err != nil {
		reason := rejectionReason(err)
		span.SetAttributes(attribute.String("shipment.rejection", reason))
		s.metrics.recordRejection(ctx, reason)
		attrs := []slog.Attr{slog.String("order.id", req.OrderID), slog.String("reason", reason)}
		if errors.Is(err, application.ErrPartialCommit) {
			attrs = append(attrs, slog.Bool("integrity_alert", true))
		}
		return nil, s.handleError(ctx, span, err, "failed to ship items", attrs...)
	}
	span.SetAttributes(
		attribute.Int("shipment.sequence", int(result.Sequence)),
		attribute.String("order.status", string(result.Status)),
		attribute.Bool("shipment.replayed", result.Replayed),
	)
	if !result.Replayed {
		s.metrics.recordCommitted(ctx, result)
	}
	s.logInfo(ctx, "items shipped",
		slog.String("order.id", result.OrderID),
		slog.Int("shipment.sequence", int(result.Sequence)),
		slog.String("order.status", string(result.Status)),
		slog.Int("units", int(result.UnitsShipped())),
		slog.Bool("replayed", result.Replayed),
	)
	return result, nil
}

// ShipmentHistory lists past shipments of an order.
func (s *Service) ShipmentHistory(ctx context.Context, orderID string) ([]domain.ShipmentHistoryEntry, error) {
	ctx, span := s.startSpan(ctx, "Service.ShipmentHistory", attribute.String("order.id", orderID))
	defer span.End()

	result, err := s.inner.ShipmentHistory(ctx, orderID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load shipment history", slog.String("order.id", orderID))
	}
	span.SetAttributes(attribute.Int("shipment.history.count", len(result)))
	return result, nil
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context, asOf time.Time) (domain.ShipmentStats, error) {
	ctx, span := s.startSpan(ctx, "Service.Stats", attribute.String("stats.as_of", asOf.Format(time.RFC3339)))
	defer span.End()

	result, err := s.inner.Stats(ctx, asOf)
	if err != nil {
		return domain.ShipmentStats{}, s.handleError(ctx, span, err, "failed to compute shipment stats")
	}
	return result, nil
}

// ListReadyForShipment lists open orders.
func (s *Service) ListReadyForShipment(ctx context.Context, filter domain.ReadyFilter) ([]domain.OrderSummary, error) {
	ctx, span := s.startSpan(ctx, "Service.ListReadyForShipment",
		attribute.Bool("filter.urgent_only", filter.UrgentOnly),
		attribute.Bool("filter.overdue_only", filter.OverdueOnly),
	)
	defer span.End()

	result, err := s.inner.ListReadyForShipment(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders ready for shipment")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

// ListShippedOrders lists shipped orders.
func (s *Service) ListShippedOrders(ctx context.Context, filter domain.ShippedFilter) ([]domain.OrderSummary, error) {
	ctx, span := s.startSpan(ctx, "Service.ListShippedOrders")
	defer span.End()

	result, err := s.inner.ListShippedOrders(ctx, filter)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list shipped orders")
	}
	span.SetAttributes(attribute.Int("order.result.count", len(result)))
	return result, nil
}

// UpdateDeliveryStatus applies a carrier tracking notification.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, update ports.DeliveryUpdate) (*domain.ShipmentRecord, error) {
	ctx, span := s.startSpan(ctx, "Service.UpdateDeliveryStatus",
		attribute.String("order.id", update.OrderID),
		attribute.Int("shipment.sequence", int(update.Sequence)),
		attribute.String("delivery.status", string(update.Status)),
	)
	defer span.End()

	result, err := s.inner.UpdateDeliveryStatus(ctx, update)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update delivery status",
			slog.String("order.id", update.OrderID), slog.Int("shipment.sequence", int(update.Sequence)))
	}
	s.logInfo(ctx, "delivery status updated",
		slog.String("order.id", update.OrderID),
		slog.Int("shipment.sequence", int(update.Sequence)),
		slog.String("delivery.status", string(update.Status)))
	return result, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := s.tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, level slog.Level, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}

// handleError records the error on the span. Business rejections log at warn, infrastructure failures at error.
func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	level := slog.LevelWarn
	if isInfrastructure(err) {
		level = slog.LevelError
	}
	s.logError(ctx, level, msg, err, attrs...)
	return err
}

func isInfrastructure(err error) bool {
	switch rejectionReason(err) {
	case "persistence", "partial_commit", "internal":
		return true
	default:
		return false
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyRequest):
		return "empty_request"
	case errors.Is(err, domain.ErrOverShipment):
		return "over_shipment"
	case errors.Is(err, domain.ErrInvalidOrderState):
		return "invalid_order_state"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, application.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ports.ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ports.ErrOrderBusy):
		return "order_busy"
	case errors.Is(err, application.ErrPartialCommit):
		return "partial_commit"
	case errors.Is(err, application.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceMetrics struct {
	shipmentsCommitted metric.Int64Counter
	unitsShipped       metric.Int64Counter
	rejections         metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	shipmentsCommitted, _ := m.Int64Counter("shipments.service.shipments_committed", metric.WithDescription("Number of committed shipments"))
	unitsShipped, _ := m.Int64Counter("shipments.service.units_shipped", metric.WithDescription("Number of units recorded as shipped"))
	rejections, _ := m.Int64Counter("shipments.service.rejections", metric.WithDescription("Number of rejected shipment requests"))
	return serviceMetrics{
		shipmentsCommitted: shipmentsCommitted,
		unitsShipped:       unitsShipped,
		rejections:         rejections,
	}
}

func (m serviceMetrics) recordCommitted(ctx context.Context, result *ports.ShipmentResult) {
	status := attribute.String("order.status", string(result.Status))
	addCounter(ctx, m.shipmentsCommitted, 1, status)
	addCounter(ctx, m.unitsShipped, int64(result.UnitsShipped()), status)
}

func (m serviceMetrics) recordRejection(ctx context.Context, reason string) {
	addCounter(ctx, m.rejections, 1, attribute.String("reason", reason))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
