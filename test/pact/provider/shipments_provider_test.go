//go:build pact
// +build pact

package provider_test

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	shipmentserver "github.com/Apurer/go-gin-shipment-server/go"
	shipmentsmemory "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/memory"
	shipmentsobs "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/observability"
	shipmentsworkflows "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/workflows"
	shipmentsapp "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/application"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	pacttest "github.com/Apurer/go-gin-shipment-server/test/pact"
)

func TestShipmentsProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateOrderReady: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			return nil, nil
		},
		pacttest.StateOrderMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.ledger.Reset()
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset(t)
			return nil
		},
	})
	require.NoError(t, err)
}

type contractProviderApp struct {
	ledger *shipmentsmemory.LedgerStore
	server *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()

	ledger := shipmentsmemory.NewLedgerStore()
	records := shipmentsmemory.NewShipmentRecordStore()
	shippedAt, err := time.Parse(time.RFC3339, pacttest.ExampleShippedAt())
	require.NoError(t, err)
	clock := func() time.Time { return shippedAt }
	ledger.WithClock(clock)

	service := shipmentsobs.New(shipmentsapp.NewService(
		ledger,
		shipmentsapp.WithIdempotencyStore(ledger),
		shipmentsapp.WithShipmentRecords(records),
		shipmentsapp.WithCustomerDirectory(shipmentsmemory.NewCustomerDirectory()),
		shipmentsapp.WithDispatcher(shipmentsworkflows.NewInlineDispatcher(records, nil)),
		shipmentsapp.WithClock(clock),
	))
	handlers := shipmentserver.ApiHandleFunctions{
		ShipmentsAPI: shipmentserver.NewShipmentsAPI(service, time.UTC),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router = shipmentserver.NewRouterWithGinEngine(router, handlers)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &contractProviderApp{ledger: ledger, server: server}
}

func (a *contractProviderApp) reset(t testing.TB) {
	t.Helper()
	a.ledger.Reset()
	a.ledger.PutProduct(domain.ProductStock{
		ProductID: pacttest.ReadyProductID,
		Name:      "Pact Chair",
		StockReal: pacttest.StockOnHand,
	})
	require.NoError(t, a.ledger.PutOrder(&domain.SalesOrder{
		ID:          pacttest.ReadyOrderID,
		OrderNumber: pacttest.ReadyOrderNumber,
		Status:      domain.StatusConfirmed,
		CreatedAt:   time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Items: []domain.SalesOrderItem{{
			ID:              pacttest.ReadyItemID,
			OrderID:         pacttest.ReadyOrderID,
			ProductID:       pacttest.ReadyProductID,
			QuantityOrdered: pacttest.OrderedQuantity,
			UnitPrice:       decimal.NewFromInt(45),
		}},
	}))
}
