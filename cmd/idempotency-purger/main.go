package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Apurer/go-gin-shipment-server/internal/app/api"
	shipmentspostgres "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/persistence/postgres"
	platformpostgres "github.com/Apurer/go-gin-shipment-server/internal/platform/postgres"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge idempotency keys")
	}

	cutoff := time.Now().UTC().Add(-cfg.IdempotencyTTL)
	removed, err := shipmentspostgres.NewIdempotencyStore(db).PurgeExpired(ctx, cutoff)
	if err != nil {
		log.Fatalf("failed to purge idempotency keys: %v", err)
	}
	logger.Info("idempotency purge completed", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
}
