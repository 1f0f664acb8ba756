package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var _ ports.ShipmentRecordStore = (*ShipmentRecordStore)(nil)

// ShipmentRecordStore persists carrier metadata per shipment sequence.
type ShipmentRecordStore struct {
	db *gorm.DB
}

// NewShipmentRecordStore wires a PostgreSQL-backed shipment record store.
func NewShipmentRecordStore(db *gorm.DB) *ShipmentRecordStore {
	return &ShipmentRecordStore{db: db}
}

// Save upserts the record keyed by order and sequence.
func (s *ShipmentRecordStore) Save(ctx context.Context, record domain.ShipmentRecord) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	row := toShipmentRow(record)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}, {Name: "sequence"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"order_number", "method", "carrier_name", "service_name", "tracking_number", "tracking_url",
				"label_urls", "carrier_reference", "cost_paid", "cost_charged", "delivery_status",
				"shipped_at", "delivered_at", "notes", "updated_at",
			}),
		}).
		Create(&row).Error
}

// Get fetches the record of one shipment.
func (s *ShipmentRecordStore) Get(ctx context.Context, orderID string, sequence int32) (*domain.ShipmentRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var row shipmentRecordRow
	if err := s.db.WithContext(ctx).First(&row, "order_id = ? AND sequence = ?", orderID, sequence).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrRecordNotFound
		}
		return nil, err
	}
	record := row.toDomain()
	return &record, nil
}

// ListByOrder returns the records of an order by sequence.
func (s *ShipmentRecordStore) ListByOrder(ctx context.Context, orderID string) ([]domain.ShipmentRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var rows []shipmentRecordRow
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("sequence").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]domain.ShipmentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func (s *ShipmentRecordStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres shipment record store not configured")
	}
	return nil
}
