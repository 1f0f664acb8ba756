package migrations

import (
	"gorm.io/gorm"

	shipmentspostgres "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/persistence/postgres"
)

// Run applies the schema of the shipments bounded context.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(shipmentspostgres.Models()...)
}
