package shipmentserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	shipmenthttpmapper "github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/adapters/http/mapper"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

// IdempotencyKeyHeader carries the client-supplied key of a shipment submission.
const IdempotencyKeyHeader = "Idempotency-Key"

// ShipmentsAPI wires HTTP transport with the shipments bounded context service.
type ShipmentsAPI struct {
	service  ports.Service
	location *time.Location
}

// NewShipmentsAPI creates a ShipmentsAPI backed by the provided service.
// Dates without a time zone are interpreted in loc.
func NewShipmentsAPI(service ports.Service, loc *time.Location) ShipmentsAPI {
	if loc == nil {
		loc = time.UTC
	}
	return ShipmentsAPI{service: service, location: loc}
}

// Get /v1/shipments/ready
// Lists confirmed and partially shipped orders
func (api *ShipmentsAPI) ListReadyForShipment(c *gin.Context) {
	filter := domain.ReadyFilter{
		Status:      domain.Status(c.Query("status")),
		Search:      c.Query("search"),
		UrgentOnly:  queryBool(c, "urgent"),
		OverdueOnly: queryBool(c, "overdue"),
	}
	if raw := c.Query("asOf"); raw != "" {
		asOf, ok := api.parseDate(c, raw)
		if !ok {
			return
		}
		filter.AsOf = asOf
	}
	rows, err := api.service.ListReadyForShipment(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipmenthttpmapper.FromSummaries(rows))
}

// Get /v1/shipments/shipped
// Lists shipped and delivered orders
func (api *ShipmentsAPI) ListShippedOrders(c *gin.Context) {
	filter := domain.ShippedFilter{Status: domain.Status(c.Query("status")), Search: c.Query("search")}
	rows, err := api.service.ListShippedOrders(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipmenthttpmapper.FromSummaries(rows))
}

// Get /v1/shipments/stats
// Returns the shipping dashboard counters
func (api *ShipmentsAPI) GetShipmentStats(c *gin.Context) {
	var asOf time.Time
	if raw := c.Query("asOf"); raw != "" {
		parsed, ok := api.parseDate(c, raw)
		if !ok {
			return
		}
		asOf = parsed
	}
	stats, err := api.service.Stats(c.Request.Context(), asOf)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipmenthttpmapper.FromStats(stats))
}

// Get /v1/sales-orders/:orderId/shipment-plan
// Computes what remains to ship
func (api *ShipmentsAPI) GetShipmentPlan(c *gin.Context) {
	plan, err := api.service.PrepareShipment(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipmenthttpmapper.FromPlan(plan))
}

// Post /v1/sales-orders/:orderId/shipments/validate
// Checks a shipment without recording it
func (api *ShipmentsAPI) ValidateShipment(c *gin.Context) {
	var payload shipmenthttpmapper.ShipmentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	req := shipmenthttpmapper.ToDomainRequest(c.Param("orderId"), "", payload)
	if err := api.service.ValidateShipment(c.Request.Context(), req); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Post /v1/sales-orders/:orderId/shipments
// Records a shipment
func (api *ShipmentsAPI) ShipItems(c *gin.Context) {
	var payload shipmenthttpmapper.ShipmentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	req := shipmenthttpmapper.ToDomainRequest(c.Param("orderId"), c.GetHeader(IdempotencyKeyHeader), payload)
	result, err := api.service.ShipItems(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, shipmenthttpmapper.FromResult(result))
}

// Get /v1/sales-orders/:orderId/shipments
// Lists past shipments of an order
func (api *ShipmentsAPI) GetShipmentHistory(c *gin.Context) {
	entries, err := api.service.ShipmentHistory(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipmenthttpmapper.FromHistory(entries))
}

// Post /v1/carrier/tracking-events
// Applies a carrier tracking notification
func (api *ShipmentsAPI) ReceiveTrackingEvent(c *gin.Context) {
	var payload shipmenthttpmapper.TrackingEvent
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindingError(c, err)
		return
	}
	record, err := api.service.UpdateDeliveryStatus(c.Request.Context(), shipmenthttpmapper.ToDeliveryUpdate(payload))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipmenthttpmapper.FromRecord(record))
}

func (api *ShipmentsAPI) parseDate(c *gin.Context, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(time.DateOnly, raw, api.location); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	badRequest(c, "asOf must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
	return time.Time{}, false
}

func queryBool(c *gin.Context, name string) bool {
	value, err := strconv.ParseBool(c.Query(name))
	return err == nil && value
}
