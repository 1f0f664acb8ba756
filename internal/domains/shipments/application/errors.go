package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var (
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid shipment input")
	// ErrPersistence signals nothing was written and the request may be retried.
	ErrPersistence = errors.New("shipment could not be persisted")
	// ErrPartialCommit signals the ledger may hold item writes without the matching status; it needs an operator.
	ErrPartialCommit = errors.New("shipment partially committed")
)

var errMissingOrderID = errors.New("order id is required")

// IsRetryable reports whether the caller may safely resubmit the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ports.ErrOrderBusy)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNegativeQuantity),
		errors.Is(err, domain.ErrQuantityOutOfRange),
		errors.Is(err, errMissingOrderID),
		errors.Is(err, errInvalidDeliveryUpdate):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, ports.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, ports.ErrCommitUncertain):
		return fmt.Errorf("%w: %w", ErrPartialCommit, err)
	case errors.Is(err, ports.ErrStoreUnavailable),
		errors.Is(err, ports.ErrConcurrentUpdate):
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return err
}
