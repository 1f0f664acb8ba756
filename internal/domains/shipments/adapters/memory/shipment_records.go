package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var _ ports.ShipmentRecordStore = (*ShipmentRecordStore)(nil)

type recordKey struct {
	orderID  string
	sequence int32
}

// ShipmentRecordStore keeps carrier metadata in memory.
type ShipmentRecordStore struct {
	mu      sync.RWMutex
	records map[recordKey]domain.ShipmentRecord
}

// NewShipmentRecordStore constructs an empty store.
func NewShipmentRecordStore() *ShipmentRecordStore {
	return &ShipmentRecordStore{records: map[recordKey]domain.ShipmentRecord{}}
}

// Save upserts the record for its order and sequence.
func (s *ShipmentRecordStore) Save(_ context.Context, record domain.ShipmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{record.OrderID, record.Sequence}] = cloneRecord(record)
	return nil
}

// Get returns the record of one shipment.
func (s *ShipmentRecordStore) Get(_ context.Context, orderID string, sequence int32) (*domain.ShipmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordKey{orderID, sequence}]
	if !ok {
		return nil, ports.ErrRecordNotFound
	}
	clone := cloneRecord(record)
	return &clone, nil
}

// ListByOrder returns the records of an order sorted by sequence.
func (s *ShipmentRecordStore) ListByOrder(_ context.Context, orderID string) ([]domain.ShipmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []domain.ShipmentRecord
	for key, record := range s.records {
		if key.orderID == orderID {
			list = append(list, cloneRecord(record))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list, nil
}

func cloneRecord(record domain.ShipmentRecord) domain.ShipmentRecord {
	record.LabelURLs = append([]string(nil), record.LabelURLs...)
	if record.DeliveredAt != nil {
		at := *record.DeliveredAt
		record.DeliveredAt = &at
	}
	return record
}
