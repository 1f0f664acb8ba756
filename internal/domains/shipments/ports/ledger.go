package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
)

var (
	// ErrConcurrentUpdate signals the order changed between read and conditional write.
	ErrConcurrentUpdate = errors.New("sales order modified concurrently")
	// ErrStoreUnavailable signals the store rejected or could not run the operation; nothing was written.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrCommitUncertain signals item writes may have landed without the matching order update.
	ErrCommitUncertain = errors.New("ledger commit outcome uncertain")
)

// ReconcileFunc computes the ledger changes from a locked, fresh ledger read.
// Returning an error aborts the unit of work without writing anything.
type ReconcileFunc func(ledger *domain.Ledger) (*domain.Reconciliation, error)

// LedgerStore is the persistence collaborator for orders, items, stock and stock movements.
type LedgerStore interface {
	// Load returns the order with its items and the stock of every referenced product.
	Load(ctx context.Context, orderID string) (*domain.Ledger, error)
	// Commit locks the order, re-reads the ledger, applies fn and persists the result atomically.
	Commit(ctx context.Context, orderID string, fn ReconcileFunc) (*domain.Reconciliation, error)
	// Movements lists the stock movements recorded against an order.
	Movements(ctx context.Context, orderID string) ([]domain.StockMovement, error)
	// Products returns stock snapshots for the given product ids.
	Products(ctx context.Context, productIDs []string) (map[string]domain.ProductStock, error)
	// ListOrders returns orders in any of the statuses, optionally filtered by order number substring.
	ListOrders(ctx context.Context, query OrderQuery) ([]*domain.SalesOrder, error)
	// Stats counts the dashboard figures for the day of asOf.
	Stats(ctx context.Context, asOf time.Time) (domain.ShipmentStats, error)
}

// OrderQuery narrows ListOrders.
type OrderQuery struct {
	Statuses []domain.Status
	Search   string
}
