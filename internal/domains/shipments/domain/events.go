package domain

import "time"

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// ShipmentCommitted is raised once a shipment has been written to the ledger.
type ShipmentCommitted struct {
	BaseEvent
	OrderID        string
	OrderNumber    string
	Sequence       int32
	PreviousStatus Status
	Status         Status
	ActorID        string
	Lines          []ShipmentLine
	Carrier        *CarrierDetails
}

// EventName returns the event type identifier.
func (e ShipmentCommitted) EventName() string {
	return "shipments.order.shipment_committed"
}

// StatusChanged reports whether the shipment moved the order to a new status.
func (e ShipmentCommitted) StatusChanged() bool {
	return e.PreviousStatus != e.Status
}
