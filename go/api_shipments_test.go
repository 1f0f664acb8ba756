package shipmentserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/memory"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/application"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
	apierrors "github.com/Apurer/go-gin-shipment-server/internal/shared/errors"
)

type fakeService struct {
	ports.Service
	lastRequest domain.ShipmentRequest
	lastAsOf    time.Time
	lastReady   domain.ReadyFilter
	shipErr     error
	replayed    bool
}

func (f *fakeService) ShipItems(_ context.Context, req domain.ShipmentRequest) (*ports.ShipmentResult, error) {
	f.lastRequest = req
	if f.shipErr != nil {
		return nil, f.shipErr
	}
	return &ports.ShipmentResult{
		OrderID:  req.OrderID,
		Sequence: 1,
		Status:   domain.StatusPartiallyShipped,
		Lines:    req.Lines,
		Replayed: f.replayed,
	}, nil
}

func (f *fakeService) ValidateShipment(_ context.Context, req domain.ShipmentRequest) error {
	f.lastRequest = req
	return f.shipErr
}

func (f *fakeService) Stats(_ context.Context, asOf time.Time) (domain.ShipmentStats, error) {
	f.lastAsOf = asOf
	return domain.ShipmentStats{Pending: 2, Urgent: 1}, nil
}

func (f *fakeService) ListReadyForShipment(_ context.Context, filter domain.ReadyFilter) ([]domain.OrderSummary, error) {
	f.lastReady = filter
	return []domain.OrderSummary{{Order: &domain.SalesOrder{ID: "o-1", OrderNumber: "SO-1", Status: domain.StatusConfirmed}}}, nil
}

func (f *fakeService) PrepareShipment(_ context.Context, orderID string) (*ports.ShipmentPlan, error) {
	return nil, fmt.Errorf("load: %w", domain.ErrOrderNotFound)
}

func (f *fakeService) UpdateDeliveryStatus(_ context.Context, update ports.DeliveryUpdate) (*domain.ShipmentRecord, error) {
	return &domain.ShipmentRecord{OrderID: update.OrderID, Sequence: update.Sequence, DeliveryStatus: update.Status, Method: domain.MethodManual}, nil
}

func newTestRouter(svc ports.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	paris, _ := time.LoadLocation("Europe/Paris")
	return NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{ShipmentsAPI: NewShipmentsAPI(svc, paris)})
}

func perform(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) apierrors.ProblemDetail {
	t.Helper()
	require.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var problem apierrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestShipItems_Created(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	rec := perform(router, http.MethodPost, "/v1/sales-orders/o-1/shipments",
		`{"shippedBy":"u-1","lines":[{"itemId":"a","quantity":2}],"carrier":{"method":"manual"}}`,
		map[string]string{IdempotencyKeyHeader: "key-1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "o-1", svc.lastRequest.OrderID)
	require.Equal(t, "key-1", svc.lastRequest.IdempotencyKey)
	require.Equal(t, "u-1", svc.lastRequest.ActorID)
	require.Contains(t, rec.Body.String(), `"unitsShipped":2`)
}

func TestShipItems_ReplayReturnsOK(t *testing.T) {
	router := newTestRouter(&fakeService{replayed: true})
	rec := perform(router, http.MethodPost, "/v1/sales-orders/o-1/shipments",
		`{"shippedBy":"u-1","lines":[{"itemId":"a","quantity":1}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"replayed":true`)
}

func TestShipItems_BindingErrors(t *testing.T) {
	router := newTestRouter(&fakeService{})

	rec := perform(router, http.MethodPost, "/v1/sales-orders/o-1/shipments", `{"lines":[{"itemId":"a","quantity":-1}]}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Equal(t, apierrors.TypeValidation, problem.Type)
	fields, ok := problem.Extensions["fields"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "required", fields["ShippedBy"])
	require.Equal(t, "gte", fields["Quantity"])

	rec = perform(router, http.MethodPost, "/v1/sales-orders/o-1/shipments", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apierrors.TypeBadRequest, decodeProblem(t, rec).Type)
}

func TestShipItems_OverflowingDuplicateLinesAreBadRequest(t *testing.T) {
	store := memory.NewLedgerStore()
	store.PutProduct(domain.ProductStock{ProductID: "p", Name: "Chair", StockReal: 100})
	require.NoError(t, store.PutOrder(&domain.SalesOrder{
		ID:     "o-1",
		Status: domain.StatusPartiallyShipped,
		Items:  []domain.SalesOrderItem{{ID: "a", OrderID: "o-1", ProductID: "p", QuantityOrdered: 10, QuantityShipped: 8}},
	}))
	router := newTestRouter(application.NewService(store))

	rec := perform(router, http.MethodPost, "/v1/sales-orders/o-1/shipments",
		`{"shippedBy":"u-1","lines":[{"itemId":"a","quantity":2147483647},{"itemId":"a","quantity":2147483645}]}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apierrors.TypeValidation, decodeProblem(t, rec).Type)

	ledger, err := store.Load(context.Background(), "o-1")
	require.NoError(t, err)
	require.Equal(t, int32(8), ledger.Order.Items[0].QuantityShipped)
	require.Equal(t, int32(100), ledger.Stock["p"].StockReal)
}

func TestShipItems_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		ext    string
	}{
		{"over shipment", &domain.OverShipmentError{ItemID: "a", Requested: 5, Remaining: 3}, http.StatusUnprocessableEntity, "excess"},
		{"empty", domain.ErrEmptyRequest, http.StatusUnprocessableEntity, ""},
		{"invalid state", &domain.InvalidOrderStateError{OrderID: "o-1", Status: domain.StatusShipped}, http.StatusConflict, "status"},
		{"idempotency", ports.ErrIdempotencyConflict, http.StatusConflict, ""},
		{"busy", ports.ErrOrderBusy, http.StatusConflict, "retryable"},
		{"not found", &domain.ItemNotFoundError{OrderID: "o-1", ItemID: "x"}, http.StatusNotFound, ""},
		{"invalid input", fmt.Errorf("%w: bad", application.ErrInvalidInput), http.StatusBadRequest, ""},
		{"persistence", fmt.Errorf("%w: %w", application.ErrPersistence, ports.ErrStoreUnavailable), http.StatusServiceUnavailable, "retryable"},
		{"partial commit", fmt.Errorf("%w: %w", application.ErrPartialCommit, ports.ErrCommitUncertain), http.StatusInternalServerError, "integrityAlert"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeService{shipErr: tc.err})
			rec := perform(router, http.MethodPost, "/v1/sales-orders/o-1/shipments",
				`{"shippedBy":"u-1","lines":[{"itemId":"a","quantity":5}]}`, nil)
			require.Equal(t, tc.status, rec.Code)
			problem := decodeProblem(t, rec)
			require.Equal(t, "/v1/sales-orders/o-1/shipments", problem.Instance)
			if tc.ext != "" {
				require.Contains(t, problem.Extensions, tc.ext)
			}
		})
	}
}

func TestValidateShipment_NoContent(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)
	rec := perform(router, http.MethodPost, "/v1/sales-orders/o-9/shipments/validate",
		`{"shippedBy":"u-1","lines":[{"itemId":"a","quantity":1}]}`, map[string]string{IdempotencyKeyHeader: "ignored"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "o-9", svc.lastRequest.OrderID)
	require.Empty(t, svc.lastRequest.IdempotencyKey)
}

func TestGetShipmentStats_ParsesDateInLocation(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)

	rec := perform(router, http.MethodGet, "/v1/shipments/stats?asOf=2024-06-12", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"pending":2,"partial":0,"completedToday":0,"overdue":0,"urgent":1}`, rec.Body.String())
	require.Equal(t, "Europe/Paris", svc.lastAsOf.Location().String())
	require.Equal(t, 12, svc.lastAsOf.Day())

	rec = perform(router, http.MethodGet, "/v1/shipments/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.lastAsOf.IsZero())

	rec = perform(router, http.MethodGet, "/v1/shipments/stats?asOf=12/06/2024", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReadyForShipment_Filters(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc)
	rec := perform(router, http.MethodGet, "/v1/shipments/ready?status=confirmed&search=SO-&urgent=true&overdue=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.StatusConfirmed, svc.lastReady.Status)
	require.Equal(t, "SO-", svc.lastReady.Search)
	require.True(t, svc.lastReady.UrgentOnly)
	require.True(t, svc.lastReady.OverdueOnly)
	require.Contains(t, rec.Body.String(), `"orderNumber":"SO-1"`)
}

func TestGetShipmentPlan_NotFound(t *testing.T) {
	rec := perform(newTestRouter(&fakeService{}), http.MethodGet, "/v1/sales-orders/missing/shipment-plan", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, apierrors.TypeNotFound, decodeProblem(t, rec).Type)
}

func TestReceiveTrackingEvent(t *testing.T) {
	router := newTestRouter(&fakeService{})
	rec := perform(router, http.MethodPost, "/v1/carrier/tracking-events",
		`{"orderId":"o-1","sequence":2,"status":"delivered"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"deliveryStatus":"delivered"`)

	rec = perform(router, http.MethodPost, "/v1/carrier/tracking-events",
		`{"orderId":"o-1","sequence":2,"status":"lost"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnimplementedRoutesAnswer501(t *testing.T) {
	router := gin.New()
	router.Handle(http.MethodGet, "/x", DefaultHandleFunc)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}
