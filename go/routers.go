// Package shipmentserver exposes the shipments HTTP API on gin.
package shipmentserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers of every API section.
type ApiHandleFunctions struct {
	ShipmentsAPI ShipmentsAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the API routes to an existing engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

// DefaultHandleFunc answers routes without an implementation.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	api := handleFunctions.ShipmentsAPI
	return []Route{
		{"ListReadyForShipment", http.MethodGet, "/v1/shipments/ready", api.ListReadyForShipment},
		{"ListShippedOrders", http.MethodGet, "/v1/shipments/shipped", api.ListShippedOrders},
		{"GetShipmentStats", http.MethodGet, "/v1/shipments/stats", api.GetShipmentStats},
		{"GetShipmentPlan", http.MethodGet, "/v1/sales-orders/:orderId/shipment-plan", api.GetShipmentPlan},
		{"ValidateShipment", http.MethodPost, "/v1/sales-orders/:orderId/shipments/validate", api.ValidateShipment},
		{"ShipItems", http.MethodPost, "/v1/sales-orders/:orderId/shipments", api.ShipItems},
		{"GetShipmentHistory", http.MethodGet, "/v1/sales-orders/:orderId/shipments", api.GetShipmentHistory},
		{"ReceiveTrackingEvent", http.MethodPost, "/v1/carrier/tracking-events", api.ReceiveTrackingEvent},
	}
}
