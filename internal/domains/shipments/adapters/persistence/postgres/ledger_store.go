package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var _ ports.LedgerStore = (*LedgerStore)(nil)

// LedgerStore persists orders, items, stock and stock movements in PostgreSQL using GORM.
// The connection is expected to be opened with TranslateError enabled.
type LedgerStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLedgerStore wires a PostgreSQL-backed ledger. Caller manages DB lifecycle.
func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db, now: time.Now}
}

// UpsertOrder writes an order and its items as handed over by upstream order management.
func (s *LedgerStore) UpsertOrder(ctx context.Context, order *domain.SalesOrder) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if order == nil || order.ID == "" || len(order.Items) == 0 {
		return errors.New("order with id and items is required")
	}
	rec, items := toOrderRecord(order)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "customer_kind", "customer_id", "expected_delivery_date", "shipped_at", "shipped_by", "shipment_count", "version", "updated_at"}),
		}).Create(&rec).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "product_id", "quantity_ordered", "quantity_shipped", "unit_price"}),
		}).Create(&items).Error
	})
}

// UpsertProduct writes a product stock snapshot.
func (s *LedgerStore) UpsertProduct(ctx context.Context, product domain.ProductStock) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	rec := productRecord{ID: product.ProductID, Name: product.Name, SKU: product.SKU, StockReal: product.StockReal}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "sku", "stock_real", "updated_at"}),
	}).Create(&rec).Error
}

// Load reads the order, its items and the stock of every referenced product.
func (s *LedgerStore) Load(ctx context.Context, orderID string) (*domain.Ledger, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	return loadLedger(s.db.WithContext(ctx), orderID, false)
}

// Commit runs fn against a row-locked ledger read and persists its result in one transaction.
func (s *LedgerStore) Commit(ctx context.Context, orderID string, fn ports.ReconcileFunc) (*domain.Reconciliation, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, unavailable(tx.Error)
	}

	rec, wrote, err := s.commitInTx(tx, orderID, fn)
	if err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && wrote {
			return nil, fmt.Errorf("%w: rollback failed: %v: %w", ports.ErrCommitUncertain, rbErr, err)
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrCommitUncertain, err)
	}
	return rec, nil
}

func (s *LedgerStore) commitInTx(tx *gorm.DB, orderID string, fn ports.ReconcileFunc) (*domain.Reconciliation, bool, error) {
	ledger, err := loadLedger(tx, orderID, true)
	if err != nil {
		return nil, false, err
	}
	rec, err := fn(ledger)
	if err != nil {
		return nil, false, err
	}
	if rec == nil || rec.Order == nil {
		return nil, false, errors.New("reconciliation produced no order state")
	}

	now := s.now()
	for _, line := range rec.Lines {
		res := tx.Model(&salesOrderItemRecord{}).
			Where("id = ? AND order_id = ? AND COALESCE(quantity_shipped, 0) + ? <= quantity_ordered", line.ItemID, orderID, line.Quantity).
			Update("quantity_shipped", gorm.Expr("COALESCE(quantity_shipped, 0) + ?", line.Quantity))
		if res.Error != nil {
			return nil, true, unavailable(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, true, ports.ErrConcurrentUpdate
		}
	}

	movements := make([]stockMovementRecord, 0, len(rec.Movements))
	for _, mv := range rec.Movements {
		if err := tx.Model(&productRecord{}).Where("id = ?", mv.ProductID).
			Updates(map[string]any{
				"stock_real": gorm.Expr("stock_real + ?", mv.QuantityChange),
				"updated_at": now,
			}).Error; err != nil {
			return nil, true, unavailable(err)
		}
		movements = append(movements, toMovementRecord(mv))
	}
	if len(movements) > 0 {
		if err := tx.Create(&movements).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, true, ports.ErrConcurrentUpdate
			}
			return nil, true, unavailable(err)
		}
	}

	order := rec.Order
	res := tx.Model(&salesOrderRecord{}).
		Where("id = ? AND version = ?", orderID, ledger.Order.Version).
		Updates(map[string]any{
			"status":         string(order.Status),
			"shipped_at":     order.ShippedAt,
			"shipped_by":     order.ShippedBy,
			"shipment_count": order.ShipmentCount,
			"version":        order.Version,
			"updated_at":     now,
		})
	if res.Error != nil {
		return nil, true, unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, true, ports.ErrConcurrentUpdate
	}

	if rec.IdempotencyKey != "" {
		key := toIdempotencyRecord(rec, now)
		if err := tx.Create(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, true, ports.ErrDuplicateRequest
			}
			return nil, true, unavailable(err)
		}
	}
	return rec, true, nil
}

// Movements lists the stock movements of an order by sequence.
func (s *LedgerStore) Movements(ctx context.Context, orderID string) ([]domain.StockMovement, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []stockMovementRecord
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("sequence, id").Find(&records).Error; err != nil {
		return nil, unavailable(err)
	}
	movements := make([]domain.StockMovement, 0, len(records))
	for _, r := range records {
		movements = append(movements, r.toDomain())
	}
	return movements, nil
}

// Products returns stock snapshots keyed by product id; unknown ids are skipped.
func (s *LedgerStore) Products(ctx context.Context, productIDs []string) (map[string]domain.ProductStock, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	result := make(map[string]domain.ProductStock, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var records []productRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&records).Error; err != nil {
		return nil, unavailable(err)
	}
	for _, r := range records {
		result[r.ID] = r.toDomain()
	}
	return result, nil
}

// ListOrders returns orders matching the query with their items.
func (s *LedgerStore) ListOrders(ctx context.Context, query ports.OrderQuery) ([]*domain.SalesOrder, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	q := db.Model(&salesOrderRecord{})
	if len(query.Statuses) > 0 {
		statuses := make([]string, 0, len(query.Statuses))
		for _, status := range query.Statuses {
			statuses = append(statuses, string(status))
		}
		q = q.Where("status IN ?", statuses)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		q = q.Where("order_number ILIKE ?", "%"+escapeLike(search)+"%")
	}
	var records []salesOrderRecord
	if err := q.Order("created_at").Find(&records).Error; err != nil {
		return nil, unavailable(err)
	}
	if len(records) == 0 {
		return []*domain.SalesOrder{}, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	var items []salesOrderItemRecord
	if err := db.Where("order_id IN ?", ids).Order("order_id, position").Find(&items).Error; err != nil {
		return nil, unavailable(err)
	}
	byOrder := make(map[string][]salesOrderItemRecord, len(records))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	orders := make([]*domain.SalesOrder, 0, len(records))
	for _, r := range records {
		orders = append(orders, r.toDomain(byOrder[r.ID]))
	}
	return orders, nil
}

// Stats counts the dashboard buckets with one query per counter.
func (s *LedgerStore) Stats(ctx context.Context, asOf time.Time) (domain.ShipmentStats, error) {
	if err := s.ensureDB(); err != nil {
		return domain.ShipmentStats{}, err
	}
	window := domain.NewStatsWindow(asOf)
	today := window.Today.Format(time.DateOnly)
	urgentUntil := window.UrgentUntil.Format(time.DateOnly)
	open := []string{string(domain.StatusConfirmed), string(domain.StatusPartiallyShipped)}
	db := s.db.WithContext(ctx)

	var stats domain.ShipmentStats
	counters := []struct {
		target *int64
		query  func(*gorm.DB) *gorm.DB
	}{
		{&stats.Pending, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", string(domain.StatusConfirmed)) }},
		{&stats.Partial, func(q *gorm.DB) *gorm.DB { return q.Where("status = ?", string(domain.StatusPartiallyShipped)) }},
		{&stats.CompletedToday, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ? AND shipped_at >= ? AND shipped_at < ?", string(domain.StatusShipped), window.DayStart, window.DayEnd)
		}},
		{&stats.Overdue, func(q *gorm.DB) *gorm.DB {
			return q.Where("status IN ? AND expected_delivery_date < ?", open, today)
		}},
		{&stats.Urgent, func(q *gorm.DB) *gorm.DB {
			return q.Where("status IN ? AND expected_delivery_date >= ? AND expected_delivery_date <= ?", open, today, urgentUntil)
		}},
	}
	for _, c := range counters {
		if err := c.query(db.Model(&salesOrderRecord{})).Count(c.target).Error; err != nil {
			return domain.ShipmentStats{}, unavailable(err)
		}
	}
	return stats, nil
}

func loadLedger(db *gorm.DB, orderID string, forUpdate bool) (*domain.Ledger, error) {
	lock := func(q *gorm.DB) *gorm.DB {
		if forUpdate {
			return q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return q
	}

	var order salesOrderRecord
	if err := lock(db).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, unavailable(err)
	}
	var items []salesOrderItemRecord
	if err := lock(db).Where("order_id = ?", orderID).Order("position, id").Find(&items).Error; err != nil {
		return nil, unavailable(err)
	}

	productIDs := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		productIDs = append(productIDs, item.ProductID)
	}
	// lock products in id order so concurrent orders sharing products cannot deadlock
	sort.Strings(productIDs)
	var products []productRecord
	if len(productIDs) > 0 {
		if err := lock(db).Where("id IN ?", productIDs).Order("id").Find(&products).Error; err != nil {
			return nil, unavailable(err)
		}
	}
	stock := make(map[string]domain.ProductStock, len(products))
	for _, p := range products {
		stock[p.ID] = p.toDomain()
	}
	for _, id := range productIDs {
		if _, ok := stock[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
	}
	return &domain.Ledger{Order: order.toDomain(items), Stock: stock}, nil
}

func (s *LedgerStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres ledger store not configured")
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
