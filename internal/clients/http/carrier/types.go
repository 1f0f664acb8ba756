package carrier

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is a pickup or delivery location.
type Address struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Street  string `json:"street1,omitempty"`
	City    string `json:"city,omitempty"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Package is one parcel of a shipment.
type Package struct {
	WeightKg decimal.Decimal `json:"weight"`
	LengthCm int32           `json:"length"`
	WidthCm  int32           `json:"width"`
	HeightCm int32           `json:"height"`
}

// ServiceQuery searches the carrier services available for a route.
type ServiceQuery struct {
	FromCountry string
	FromZip     string
	ToCountry   string
	ToZip       string
	Packages    []Package
}

// Service is a bookable carrier offer.
type Service struct {
	ID            string          `json:"id"`
	CarrierName   string          `json:"carrier_name"`
	Name          string          `json:"name"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Currency      string          `json:"currency"`
	TransitHours  int32           `json:"transit_hours"`
	DropoffNeeded bool            `json:"dropoff"`
}

// OrderRequest books one shipment.
type OrderRequest struct {
	ServiceID   string    `json:"service_id"`
	OrderRef    string    `json:"order_reference"`
	Content     string    `json:"content"`
	From        Address   `json:"from"`
	To          Address   `json:"to"`
	Packages    []Package `json:"packages"`
	DropoffID   string    `json:"dropoff_point_id,omitempty"`
	ContentInfo string    `json:"additional_data,omitempty"`
}

// Order is the carrier acknowledgement of a booking.
type Order struct {
	Reference      string          `json:"reference"`
	CarrierName    string          `json:"carrier"`
	ServiceName    string          `json:"service"`
	TrackingNumber string          `json:"tracking_code"`
	TrackingURL    string          `json:"tracking_url"`
	TotalPrice     decimal.Decimal `json:"price"`
}

// TrackingEvent is one carrier-side status change.
type TrackingEvent struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
}

// Dropoff is a relay point where parcels can be left.
type Dropoff struct {
	ID      string `json:"id"`
	Name    string `json:"commerce_name"`
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zip"`
}

type apiError struct {
	Message string `json:"message"`
}
