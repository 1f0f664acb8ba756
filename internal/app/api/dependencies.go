package api

import (
	"context"
	"fmt"
	"log/slog"

	carrierclient "github.com/Apurer/go-gin-shipment-server/internal/clients/http/carrier"
	shipmentcarrier "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/external/carrier"
	redislocking "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/locking/redis"
	shipmentsmemory "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/memory"
	shipmentsdynamodb "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/persistence/dynamodb"
	shipmentspostgres "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/persistence/postgres"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	platformdynamodb "github.com/Apurer/go-gin-shipment-server/internal/platform/dynamodb"
	"github.com/Apurer/go-gin-shipment-server/internal/platform/migrations"
	platformpostgres "github.com/Apurer/go-gin-shipment-server/internal/platform/postgres"
	platformredis "github.com/Apurer/go-gin-shipment-server/internal/platform/redis"
)

// Dependencies are the shipments collaborators shared by the API, worker and purger processes.
type Dependencies struct {
	Ledger      ports.LedgerStore
	Idempotency ports.IdempotencyStore
	Records     ports.ShipmentRecordStore
	Customers   ports.CustomerDirectory
	Locker      ports.OrderLocker
	Gateway     ports.CarrierGateway
	cleanups    []func()
}

// Close releases every connection opened by BuildDependencies.
func (d *Dependencies) Close() {
	for i := len(d.cleanups) - 1; i >= 0; i-- {
		d.cleanups[i]()
	}
}

// BuildDependencies connects the configured backends. Missing Postgres or Redis degrade to in-memory
// collaborators with a warning; a misconfigured DynamoDB or carrier backend is an error.
func BuildDependencies(ctx context.Context, cfg Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}
	db, closeDB := platformpostgres.ConnectFromEnv(ctx, logger)
	deps.cleanups = append(deps.cleanups, closeDB)

	if db != nil {
		if cfg.AutoMigrate {
			if err := migrations.Run(db); err != nil {
				deps.Close()
				return nil, fmt.Errorf("migrate shipments schema: %w", err)
			}
		}
		deps.Ledger = shipmentspostgres.NewLedgerStore(db)
		deps.Idempotency = shipmentspostgres.NewIdempotencyStore(db)
		deps.Customers = shipmentspostgres.NewCustomerDirectory(db)
		logger.Info("shipments ledger configured with postgres")
	} else {
		store := shipmentsmemory.NewLedgerStore()
		deps.Ledger = store
		deps.Idempotency = store
		deps.Customers = shipmentsmemory.NewCustomerDirectory()
	}

	switch {
	case cfg.RecordsBackend == RecordsBackendDynamoDB:
		ddb, err := platformdynamodb.NewClientFromEnv(ctx)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("configure dynamodb shipment records: %w", err)
		}
		deps.Records = shipmentsdynamodb.NewShipmentRecordStore(ddb)
		logger.Info("shipment records configured with dynamodb")
	case cfg.RecordsBackend == RecordsBackendPostgres && db != nil:
		deps.Records = shipmentspostgres.NewShipmentRecordStore(db)
	default:
		deps.Records = shipmentsmemory.NewShipmentRecordStore()
	}

	lockClient, closeLock := platformredis.LockerFromEnv(ctx, logger)
	deps.cleanups = append(deps.cleanups, closeLock)
	if lockClient != nil {
		deps.Locker = redislocking.NewOrderLocker(lockClient)
	}

	if cfg.Carrier.Enabled() {
		client, err := carrierclient.NewClient(cfg.Carrier.BaseURL, cfg.Carrier.APIKey,
			carrierclient.WithRatePerMinute(cfg.Carrier.RatePerMinute),
			carrierclient.WithMaxRetries(cfg.Carrier.MaxRetries),
		)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Gateway = shipmentcarrier.NewGateway(client, carrierclient.Address{
			Company: cfg.Carrier.SenderCompany,
			ZipCode: cfg.Carrier.SenderZip,
			Country: cfg.Carrier.SenderCountry,
		})
		logger.Info("carrier gateway enabled")
	}
	return deps, nil
}
