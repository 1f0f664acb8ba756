package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
)

var (
	// ErrIdempotencyConflict indicates the same key was used with a different payload or order.
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrDuplicateRequest is returned by Commit when the idempotency key was stored by a concurrent request.
	ErrDuplicateRequest = errors.New("idempotency key already committed")
)

// IdempotencyRecord ties a client-supplied key to the shipment it committed.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     string
	Sequence    int32
	Status      domain.Status
	ShippedAt   time.Time
	Lines       []domain.ShipmentLine
	CreatedAt   time.Time
}

// Matches reports whether a replayed request targets the same order with the same payload.
func (r *IdempotencyRecord) Matches(orderID, requestHash string) bool {
	return r != nil && r.OrderID == orderID && r.RequestHash == requestHash
}

// IdempotencyStore reads keys written by LedgerStore.Commit.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// PurgeExpired deletes records created before the cutoff and returns how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
