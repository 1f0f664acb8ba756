package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	shipmentserver "github.com/Apurer/go-gin-shipment-server/go"
	shipmentsobs "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/observability"
	shipmentsworkflows "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/workflows"
	shipmentsapp "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/application"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	platformobservability "github.com/Apurer/go-gin-shipment-server/internal/platform/observability"
)

// Run boots the shipments HTTP API with observability, stores, and dispatch wired.
func Run(ctx context.Context) error {
	const serviceName = "shipments-api"
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	deps, err := BuildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	var dispatcher ports.DispatchOrchestrator = shipmentsworkflows.NewInlineDispatcher(deps.Records, deps.Gateway)
	if temporalClient, err := ConnectTemporalClient(cfg, instruments, "temporal-client"); err != nil {
		logger.Warn("Temporal workflows unavailable, dispatching shipments inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		dispatcher = shipmentsworkflows.NewTemporalDispatcher(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	opts := []shipmentsapp.Option{
		shipmentsapp.WithIdempotencyStore(deps.Idempotency),
		shipmentsapp.WithShipmentRecords(deps.Records),
		shipmentsapp.WithCustomerDirectory(deps.Customers),
		shipmentsapp.WithDispatcher(dispatcher),
		shipmentsapp.WithLogger(logger),
	}
	if deps.Locker != nil {
		opts = append(opts, shipmentsapp.WithOrderLocker(deps.Locker))
	}
	service := shipmentsobs.New(
		shipmentsapp.NewService(deps.Ledger, opts...),
		shipmentsobs.WithLogger(logger),
		shipmentsobs.WithTracer(instruments.Tracer("internal.shipments.application")),
		shipmentsobs.WithMeter(instruments.Meter("internal.shipments.application")),
	)

	handlers := shipmentserver.ApiHandleFunctions{
		ShipmentsAPI: shipmentserver.NewShipmentsAPI(service, cfg.Location),
	}
	router := shipmentserver.NewRouter(handlers)
	router.Use(otelgin.Middleware(serviceName))
	addr := ":" + cfg.Port
	logger.Info("Shipments API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("Shipments API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// ConnectTemporalClient dials Temporal with tracing and structured logging, unless disabled.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments, tracerName string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer(tracerName)
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
