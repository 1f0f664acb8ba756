//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-gin-shipment-server/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type shipmentLine struct {
	ItemID   string `json:"itemId"`
	Quantity int32  `json:"quantity"`
}

type shipmentResult struct {
	OrderID      string         `json:"orderId"`
	Sequence     int32          `json:"sequence"`
	Status       string         `json:"status"`
	Lines        []shipmentLine `json:"lines"`
	UnitsShipped int32          `json:"unitsShipped"`
	Replayed     bool           `json:"replayed"`
}

type planItem struct {
	ItemID            string `json:"itemId"`
	QuantityRemaining int32  `json:"quantityRemaining"`
	QuantityToShip    int32  `json:"quantityToShip"`
}

type shipmentPlan struct {
	Items []planItem `json:"items"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	kind   string
	title  string
	detail string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func TestWarehouseConsoleContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	problemContentType := matchers.S("application/problem+json")

	pact.AddInteraction().
		Given(pacttest.StateOrderReady).
		UponReceiving("a request for the shipment plan of a ready order").
		WithRequest("GET", fmt.Sprintf("/v1/sales-orders/%s/shipment-plan", pacttest.ReadyOrderID)).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"order": matchers.Map{
					"id":          matchers.S(pacttest.ReadyOrderID),
					"orderNumber": matchers.S(pacttest.ReadyOrderNumber),
					"status":      matchers.Term("confirmed", "confirmed|partially_shipped"),
				},
				"items": matchers.EachLike(matchers.Map{
					"itemId":            matchers.S(pacttest.ReadyItemID),
					"quantityRemaining": matchers.Like(pacttest.OrderedQuantity),
					"quantityToShip":    matchers.Like(pacttest.OrderedQuantity),
				}, 1),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderReady).
		UponReceiving("a request to ship part of a ready order").
		WithRequest("POST", fmt.Sprintf("/v1/sales-orders/%s/shipments", pacttest.ReadyOrderID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Idempotency-Key", matchers.S(pacttest.IdempotencyKey))
			b.JSONBody(pacttest.ExampleShipmentPayload())
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"orderId":      matchers.S(pacttest.ReadyOrderID),
				"sequence":     matchers.Like(1),
				"status":       matchers.S("partially_shipped"),
				"shippedAt":    matchers.Like(pacttest.ExampleShippedAt()),
				"unitsShipped": matchers.Like(2),
				"replayed":     matchers.Like(false),
				"lines": matchers.EachLike(matchers.Map{
					"itemId":   matchers.S(pacttest.ReadyItemID),
					"quantity": matchers.Like(2),
				}, 1),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderReady).
		UponReceiving("a request shipping more than was ordered").
		WithRequest("POST", fmt.Sprintf("/v1/sales-orders/%s/shipments/validate", pacttest.ReadyOrderID), func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(map[string]any{
				"shippedBy": pacttest.ShippedBy,
				"lines":     []map[string]any{{"itemId": pacttest.ReadyItemID, "quantity": 5}},
			})
		}).
		WillRespondWith(http.StatusUnprocessableEntity, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/unprocessable-entity"),
				"status": matchers.Like(http.StatusUnprocessableEntity),
				"extensions": matchers.Map{
					"itemId":    matchers.S(pacttest.ReadyItemID),
					"requested": matchers.Like(5),
					"remaining": matchers.Like(3),
					"excess":    matchers.Like(2),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request for the shipment plan of a missing order").
		WithRequest("GET", fmt.Sprintf("/v1/sales-orders/%s/shipment-plan", pacttest.MissingOrderID)).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newShipmentsClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		plan, err := client.Plan(ctx, pacttest.ReadyOrderID)
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}
		if len(plan.Items) == 0 || plan.Items[0].ItemID != pacttest.ReadyItemID {
			return fmt.Errorf("unexpected plan %+v", plan)
		}

		result, err := client.Ship(ctx, pacttest.ReadyOrderID, pacttest.IdempotencyKey, pacttest.ExampleShipmentPayload())
		if err != nil {
			return fmt.Errorf("ship items: %w", err)
		}
		if result.Sequence == 0 || result.UnitsShipped == 0 {
			return fmt.Errorf("expected committed shipment, got %+v", result)
		}

		err = client.Validate(ctx, pacttest.ReadyOrderID, map[string]any{
			"shippedBy": pacttest.ShippedBy,
			"lines":     []map[string]any{{"itemId": pacttest.ReadyItemID, "quantity": 5}},
		})
		if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusUnprocessableEntity {
			return fmt.Errorf("expected 422 for over-shipment, got %v", err)
		}

		_, err = client.Plan(ctx, pacttest.MissingOrderID)
		if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404 for %s, got %v", pacttest.MissingOrderID, err)
		}
		return nil
	})
	require.NoError(t, err)
}

type shipmentsClient struct {
	baseURL    string
	httpClient *http.Client
}

func newShipmentsClient(config pactconsumer.MockServerConfig) *shipmentsClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &shipmentsClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *shipmentsClient) Plan(ctx context.Context, orderID string) (*shipmentPlan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/sales-orders/%s/shipment-plan", c.baseURL, orderID), nil)
	if err != nil {
		return nil, err
	}
	var plan shipmentPlan
	if err := c.do(req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *shipmentsClient) Ship(ctx context.Context, orderID, key string, payload map[string]any) (*shipmentResult, error) {
	req, err := c.jsonRequest(ctx, fmt.Sprintf("%s/v1/sales-orders/%s/shipments", c.baseURL, orderID), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Idempotency-Key", key)
	var result shipmentResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *shipmentsClient) Validate(ctx context.Context, orderID string, payload map[string]any) error {
	req, err := c.jsonRequest(ctx, fmt.Sprintf("%s/v1/sales-orders/%s/shipments/validate", c.baseURL, orderID), payload)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *shipmentsClient) jsonRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *shipmentsClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{status: status, kind: problem.Type, title: problem.Title, detail: problem.Detail}
}
