package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/go-gin-shipment-server/internal/app/api"
	shipmentactivities "github.com/Apurer/go-gin-shipment-server/internal/durable/temporal/activities/shipments"
	shipmentworkflows "github.com/Apurer/go-gin-shipment-server/internal/durable/temporal/workflows/shipments"
	platformobservability "github.com/Apurer/go-gin-shipment-server/internal/platform/observability"
)

func main() {
	ctx := context.Background()
	const serviceName = "shipments-worker"
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	deps, err := api.BuildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build shipment dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.Close()
	activities := shipmentactivities.NewActivities(deps.Records, deps.Gateway)

	temporalClient, err := api.ConnectTemporalClient(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, shipmentworkflows.DispatchTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(shipmentworkflows.DispatchWorkflow, workflow.RegisterOptions{Name: shipmentworkflows.DispatchWorkflowName})
	w.RegisterActivityWithOptions(activities.RecordShipment, activity.RegisterOptions{Name: shipmentactivities.RecordShipmentActivityName})
	w.RegisterActivityWithOptions(activities.BookCarrier, activity.RegisterOptions{Name: shipmentactivities.BookCarrierActivityName})

	logger.Info("worker listening", slog.String("taskQueue", shipmentworkflows.DispatchTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
