//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "shipments-api"
	ConsumerName = "warehouse-console"

	StateOrderReady    = "order SO-PACT-1 is confirmed with stock on hand"
	StateOrderMissing  = "no sales order with id ghost-order"
)

const (
	ReadyOrderID     = "pact-order-1"
	ReadyOrderNumber = "SO-PACT-1"
	ReadyItemID      = "pact-item-1"
	ReadyProductID   = "pact-product-1"
	MissingOrderID   = "ghost-order"

	OrderedQuantity  int32 = 3
	StockOnHand      int32 = 10
	IdempotencyKey         = "pact-key-1"
	ShippedBy              = "pact-operator"
	exampleShippedAt       = "2024-06-12T10:00:00Z"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the warehouse console consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleShipmentPayload ships two units of the ready order.
func ExampleShipmentPayload() map[string]any {
	return map[string]any{
		"shippedBy": ShippedBy,
		"lines": []map[string]any{
			{"itemId": ReadyItemID, "quantity": 2},
		},
		"carrier": map[string]any{
			"method":         "manual",
			"trackingNumber": "TRK-PACT-1",
		},
	}
}

// ExampleShippedAt is the fixed instant the provider clock reports.
func ExampleShippedAt() string {
	return exampleShippedAt
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
