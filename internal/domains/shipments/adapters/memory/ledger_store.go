package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var (
	_ ports.LedgerStore      = (*LedgerStore)(nil)
	_ ports.IdempotencyStore = (*LedgerStore)(nil)
)

// LedgerStore is an in-memory ledger for development and tests.
// Commits on the same order are serialized by a per-order mutex; the store-wide
// RW lock keeps readers from observing a half-applied commit.
type LedgerStore struct {
	mu          sync.RWMutex
	orders      map[string]*domain.SalesOrder
	products    map[string]domain.ProductStock
	movements   map[string][]domain.StockMovement
	idempotency map[string]ports.IdempotencyRecord

	locksMu    sync.Mutex
	orderLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewLedgerStore constructs an empty ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		orders:      map[string]*domain.SalesOrder{},
		products:    map[string]domain.ProductStock{},
		movements:   map[string][]domain.StockMovement{},
		idempotency: map[string]ports.IdempotencyRecord{},
		orderLocks:  map[string]*sync.Mutex{},
		now:         time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *LedgerStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PutOrder inserts or replaces an order as handed over by upstream order management.
func (s *LedgerStore) PutOrder(order *domain.SalesOrder) error {
	if order == nil || order.ID == "" {
		return errors.New("order id is required")
	}
	if len(order.Items) == 0 {
		return errors.New("order must have at least one item")
	}
	if !order.Status.Valid() {
		return errors.New("order status is invalid")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order.Clone()
	return nil
}

// PutProduct inserts or replaces a product stock snapshot.
func (s *LedgerStore) PutProduct(product domain.ProductStock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ProductID] = product
}

// Reset drops every stored entity.
func (s *LedgerStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = map[string]*domain.SalesOrder{}
	s.products = map[string]domain.ProductStock{}
	s.movements = map[string][]domain.StockMovement{}
	s.idempotency = map[string]ports.IdempotencyRecord{}
}

// Load returns a consistent copy of the order and the stock of its products.
func (s *LedgerStore) Load(_ context.Context, orderID string) (*domain.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(orderID)
}

func (s *LedgerStore) loadLocked(orderID string) (*domain.Ledger, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	stock := make(map[string]domain.ProductStock, len(order.Items))
	for _, item := range order.Items {
		product, ok := s.products[item.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound
		}
		stock[item.ProductID] = product
	}
	return &domain.Ledger{Order: order.Clone(), Stock: stock}, nil
}

// Commit serializes on the order, evaluates fn on a fresh read and applies the result atomically.
func (s *LedgerStore) Commit(_ context.Context, orderID string, fn ports.ReconcileFunc) (*domain.Reconciliation, error) {
	lock := s.orderLock(orderID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	ledger, err := s.loadLocked(orderID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	rec, err := fn(ledger)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Order == nil {
		return nil, errors.New("reconciliation produced no order state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if current.Version != ledger.Order.Version {
		return nil, ports.ErrConcurrentUpdate
	}
	if rec.IdempotencyKey != "" {
		if _, exists := s.idempotency[rec.IdempotencyKey]; exists {
			return nil, ports.ErrDuplicateRequest
		}
	}

	// stock is shared across orders, so movements are re-based on the stock seen at write time
	for i := range rec.Movements {
		mv := &rec.Movements[i]
		product := s.products[mv.ProductID]
		mv.QuantityBefore = product.StockReal
		product.StockReal += mv.QuantityChange
		mv.QuantityAfter = product.StockReal
		s.products[mv.ProductID] = product
	}
	s.movements[orderID] = append(s.movements[orderID], rec.Movements...)
	s.orders[orderID] = rec.Order.Clone()
	if rec.IdempotencyKey != "" {
		s.idempotency[rec.IdempotencyKey] = ports.IdempotencyRecord{
			Key:         rec.IdempotencyKey,
			RequestHash: rec.RequestHash,
			OrderID:     rec.OrderID,
			Sequence:    rec.Sequence,
			Status:      rec.Status,
			ShippedAt:   rec.ShippedAt,
			Lines:       append([]domain.ShipmentLine(nil), rec.Lines...),
			CreatedAt:   s.now(),
		}
	}
	return rec, nil
}

// Movements returns the stock movements recorded against an order.
func (s *LedgerStore) Movements(_ context.Context, orderID string) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StockMovement(nil), s.movements[orderID]...), nil
}

// Products returns stock snapshots for known product ids; unknown ids are skipped.
func (s *LedgerStore) Products(_ context.Context, productIDs []string) (map[string]domain.ProductStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]domain.ProductStock, len(productIDs))
	for _, id := range productIDs {
		if product, ok := s.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

// ListOrders returns copies of the orders matching the query.
func (s *LedgerStore) ListOrders(_ context.Context, query ports.OrderQuery) ([]*domain.SalesOrder, error) {
	statuses := make(map[domain.Status]struct{}, len(query.Statuses))
	for _, status := range query.Statuses {
		statuses[status] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.SalesOrder, 0, len(s.orders))
	for _, order := range s.orders {
		if len(statuses) > 0 {
			if _, ok := statuses[order.Status]; !ok {
				continue
			}
		}
		if !domain.MatchesSearch(order, query.Search) {
			continue
		}
		list = append(list, order.Clone())
	}
	return list, nil
}

// Stats aggregates counters over every stored order.
func (s *LedgerStore) Stats(_ context.Context, asOf time.Time) (domain.ShipmentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := make([]*domain.SalesOrder, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}
	return domain.ComputeStats(orders, asOf), nil
}

// Get returns the idempotency record for the key, or nil when absent.
func (s *LedgerStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.idempotency[key]
	if !ok {
		return nil, nil
	}
	copy := record
	copy.Lines = append([]domain.ShipmentLine(nil), record.Lines...)
	return &copy, nil
}

// PurgeExpired removes idempotency records created before the cutoff.
func (s *LedgerStore) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for key, record := range s.idempotency {
		if record.CreatedAt.Before(before) {
			delete(s.idempotency, key)
			purged++
		}
	}
	return purged, nil
}

func (s *LedgerStore) orderLock(orderID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.orderLocks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.orderLocks[orderID] = lock
	}
	return lock
}
