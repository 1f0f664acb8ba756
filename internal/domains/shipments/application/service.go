package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

// Service orchestrates the shipment reconciliation use cases.
type Service struct {
	ledger      ports.LedgerStore
	idempotency ports.IdempotencyStore
	records     ports.ShipmentRecordStore
	locker      ports.OrderLocker
	customers   ports.CustomerDirectory
	dispatcher  ports.DispatchOrchestrator
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithIdempotencyStore enables replay of requests carrying an idempotency key.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) { s.idempotency = store }
}

// WithShipmentRecords merges carrier metadata into history and enables delivery updates.
func WithShipmentRecords(store ports.ShipmentRecordStore) Option {
	return func(s *Service) { s.records = store }
}

// WithOrderLocker adds a cross-process lock around each commit.
func WithOrderLocker(locker ports.OrderLocker) Option {
	return func(s *Service) { s.locker = locker }
}

// WithCustomerDirectory resolves customer names for worklists.
func WithCustomerDirectory(directory ports.CustomerDirectory) Option {
	return func(s *Service) { s.customers = directory }
}

// WithDispatcher hands committed shipments to the carrier dispatch flow.
func WithDispatcher(dispatcher ports.DispatchOrchestrator) Option {
	return func(s *Service) { s.dispatcher = dispatcher }
}

// WithLogger injects a slog logger for degraded-path warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the shipments service with its dependencies.
func NewService(ledger ports.LedgerStore, opts ...Option) *Service {
	s := &Service{ledger: ledger, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PrepareShipment reads the ledger and computes the shippable view of an order.
func (s *Service) PrepareShipment(ctx context.Context, orderID string) (*ports.ShipmentPlan, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, mapError(errMissingOrderID)
	}
	ledger, err := s.ledger.Load(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	return &ports.ShipmentPlan{
		Order: ledger.Order,
		Items: domain.PrepareShipmentItems(ledger.Order, ledger.Stock),
	}, nil
}

// ValidateShipment runs every commit-time check against a fresh read without writing anything.
func (s *Service) ValidateShipment(ctx context.Context, req domain.ShipmentRequest) error {
	if strings.TrimSpace(req.OrderID) == "" {
		return mapError(errMissingOrderID)
	}
	if _, err := req.NormalizedLines(); err != nil {
		return mapError(err)
	}
	ledger, err := s.ledger.Load(ctx, req.OrderID)
	if err != nil {
		return mapError(err)
	}
	_, err = domain.Validate(ledger, req)
	return mapError(err)
}

// ShipItems validates and commits a shipment, then hands it to the dispatcher.
func (s *Service) ShipItems(ctx context.Context, req domain.ShipmentRequest) (*ports.ShipmentResult, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, mapError(errMissingOrderID)
	}
	if _, err := req.NormalizedLines(); err != nil {
		return nil, mapError(err)
	}

	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	var requestHash string
	if req.IdempotencyKey != "" {
		hash, err := FingerprintShipment(req)
		if err != nil {
			return nil, err
		}
		requestHash = hash
		if replayed, err := s.replay(ctx, req.IdempotencyKey, req.OrderID, requestHash); err != nil || replayed != nil {
			return replayed, err
		}
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, req.OrderID)
		if err != nil {
			return nil, mapError(err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "failed to release order lock", slog.String("order.id", req.OrderID), slog.String("error", err.Error()))
			}
		}()
	}

	now := s.now()
	rec, err := s.ledger.Commit(ctx, req.OrderID, func(ledger *domain.Ledger) (*domain.Reconciliation, error) {
		rec, err := domain.Reconcile(ledger, req, now)
		if err != nil {
			return nil, err
		}
		rec.RequestHash = requestHash
		return rec, nil
	})
	if errors.Is(err, ports.ErrDuplicateRequest) {
		replayed, replayErr := s.replay(ctx, req.IdempotencyKey, req.OrderID, requestHash)
		if replayErr != nil {
			return nil, replayErr
		}
		if replayed != nil {
			return replayed, nil
		}
	}
	if err != nil {
		return nil, mapError(err)
	}

	s.dispatch(ctx, rec.Event())
	return &ports.ShipmentResult{
		OrderID:        rec.OrderID,
		OrderNumber:    rec.OrderNumber,
		Sequence:       rec.Sequence,
		PreviousStatus: rec.PreviousStatus,
		Status:         rec.Status,
		ShippedAt:      rec.ShippedAt,
		Lines:          rec.Lines,
	}, nil
}

// ShipmentHistory lists past shipments of an order, newest first.
func (s *Service) ShipmentHistory(ctx context.Context, orderID string) ([]domain.ShipmentHistoryEntry, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, mapError(errMissingOrderID)
	}
	ledger, err := s.ledger.Load(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	movements, err := s.ledger.Movements(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	products := ledger.Stock
	if products == nil {
		products = map[string]domain.ProductStock{}
	}
	if missing := missingProducts(movements, products); len(missing) > 0 {
		extra, err := s.ledger.Products(ctx, missing)
		if err != nil {
			return nil, mapError(err)
		}
		for id, p := range extra {
			products[id] = p
		}
	}
	var records []domain.ShipmentRecord
	if s.records != nil {
		records, err = s.records.ListByOrder(ctx, orderID)
		if err != nil {
			s.logger.WarnContext(ctx, "shipment records unavailable, returning movement history only",
				slog.String("order.id", orderID), slog.String("error", err.Error()))
			records = nil
		}
	}
	return domain.BuildHistory(movements, products, records), nil
}

// Stats returns the shipping dashboard counters for the day of asOf.
func (s *Service) Stats(ctx context.Context, asOf time.Time) (domain.ShipmentStats, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	stats, err := s.ledger.Stats(ctx, asOf)
	if err != nil {
		return domain.ShipmentStats{}, mapError(err)
	}
	return stats, nil
}

// ListReadyForShipment lists open orders ordered by expected delivery date.
func (s *Service) ListReadyForShipment(ctx context.Context, filter domain.ReadyFilter) ([]domain.OrderSummary, error) {
	if filter.AsOf.IsZero() {
		filter.AsOf = s.now()
	}
	orders, err := s.ledger.ListOrders(ctx, ports.OrderQuery{Statuses: filter.Statuses(), Search: filter.Search})
	if err != nil {
		return nil, mapError(err)
	}
	window := domain.NewStatsWindow(filter.AsOf)
	kept := orders[:0]
	for _, order := range orders {
		if filter.UrgentOnly && !window.IsUrgent(order) {
			continue
		}
		if filter.OverdueOnly && !window.IsOverdue(order) {
			continue
		}
		kept = append(kept, order)
	}
	domain.SortByExpectedDelivery(kept)
	return s.summarize(ctx, kept, window), nil
}

// ListShippedOrders lists shipped or delivered orders, most recent first.
func (s *Service) ListShippedOrders(ctx context.Context, filter domain.ShippedFilter) ([]domain.OrderSummary, error) {
	orders, err := s.ledger.ListOrders(ctx, ports.OrderQuery{Statuses: filter.Statuses(), Search: filter.Search})
	if err != nil {
		return nil, mapError(err)
	}
	domain.SortByShippedAtDesc(orders)
	return s.summarize(ctx, orders, domain.NewStatsWindow(s.now())), nil
}

// UpdateDeliveryStatus applies a carrier tracking notification to the stored shipment record.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, update ports.DeliveryUpdate) (*domain.ShipmentRecord, error) {
	if strings.TrimSpace(update.OrderID) == "" || update.Sequence <= 0 || !update.Status.Valid() {
		return nil, mapError(errInvalidDeliveryUpdate)
	}
	if s.records == nil {
		return nil, mapError(ports.ErrRecordNotFound)
	}
	record, err := s.records.Get(ctx, update.OrderID, update.Sequence)
	if err != nil {
		return nil, mapError(err)
	}
	record.DeliveryStatus = update.Status
	if update.Status == domain.DeliveryDelivered {
		at := update.OccurredAt
		if at.IsZero() {
			at = s.now()
		}
		record.DeliveredAt = &at
	}
	if err := s.records.Save(ctx, *record); err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

var errInvalidDeliveryUpdate = errors.New("delivery update requires order id, positive sequence and known status")

func (s *Service) replay(ctx context.Context, key, orderID, requestHash string) (*ports.ShipmentResult, error) {
	if s.idempotency == nil {
		return nil, nil
	}
	record, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, mapError(err)
	}
	if record == nil {
		return nil, nil
	}
	if !record.Matches(orderID, requestHash) {
		return nil, fmt.Errorf("%w: key %q", ports.ErrIdempotencyConflict, key)
	}
	return &ports.ShipmentResult{
		OrderID:   record.OrderID,
		Sequence:  record.Sequence,
		Status:    record.Status,
		ShippedAt: record.ShippedAt,
		Lines:     append([]domain.ShipmentLine(nil), record.Lines...),
		Replayed:  true,
	}, nil
}

func (s *Service) dispatch(ctx context.Context, event domain.ShipmentCommitted) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "shipment committed but dispatch failed",
			slog.String("order.id", event.OrderID),
			slog.Int("shipment.sequence", int(event.Sequence)),
			slog.String("error", err.Error()))
	}
}

func (s *Service) summarize(ctx context.Context, orders []*domain.SalesOrder, window domain.StatsWindow) []domain.OrderSummary {
	names := s.customerNames(ctx, orders)
	summaries := make([]domain.OrderSummary, 0, len(orders))
	for _, order := range orders {
		summary := domain.Summarize(order, window)
		if name, ok := names[order.Customer]; ok {
			summary.CustomerName = name
		} else {
			summary.CustomerName = domain.UnknownCustomerName(order.Customer.Kind)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func (s *Service) customerNames(ctx context.Context, orders []*domain.SalesOrder) map[domain.CustomerRef]string {
	if s.customers == nil || len(orders) == 0 {
		return nil
	}
	seen := map[domain.CustomerRef]struct{}{}
	refs := make([]domain.CustomerRef, 0, len(orders))
	for _, order := range orders {
		if order.Customer.IsZero() {
			continue
		}
		if _, ok := seen[order.Customer]; ok {
			continue
		}
		seen[order.Customer] = struct{}{}
		refs = append(refs, order.Customer)
	}
	if len(refs) == 0 {
		return nil
	}
	names, err := s.customers.DisplayNames(ctx, refs)
	if err != nil {
		s.logger.WarnContext(ctx, "customer directory unavailable, using fallback names", slog.String("error", err.Error()))
		return nil
	}
	return names
}

func missingProducts(movements []domain.StockMovement, known map[string]domain.ProductStock) []string {
	var missing []string
	seen := map[string]struct{}{}
	for _, mv := range movements {
		if _, ok := known[mv.ProductID]; ok {
			continue
		}
		if _, ok := seen[mv.ProductID]; ok {
			continue
		}
		seen[mv.ProductID] = struct{}{}
		missing = append(missing, mv.ProductID)
	}
	return missing
}

var _ ports.Service = (*Service)(nil)
