package domain

import "time"

// UrgentHorizonDays bounds the window in which an upcoming delivery counts as urgent.
const UrgentHorizonDays = 3

// ShipmentStats are the dashboard counters of the shipping workload.
type ShipmentStats struct {
	Pending        int64
	Partial        int64
	CompletedToday int64
	Overdue        int64
	Urgent         int64
}

// StatsWindow holds the day boundaries derived from an as-of instant.
type StatsWindow struct {
	AsOf        time.Time
	DayStart    time.Time
	DayEnd      time.Time
	Today       time.Time
	UrgentUntil time.Time
}

// NewStatsWindow computes day boundaries in the location of asOf.
// Today and UrgentUntil are calendar dates expressed as UTC midnights.
func NewStatsWindow(asOf time.Time) StatsWindow {
	y, m, d := asOf.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return StatsWindow{
		AsOf:        asOf,
		DayStart:    dayStart,
		DayEnd:      dayStart.AddDate(0, 0, 1),
		Today:       today,
		UrgentUntil: today.AddDate(0, 0, UrgentHorizonDays),
	}
}

// CalendarDate truncates a timestamp to its calendar date as a UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsOverdue reports whether an open order missed its expected delivery date.
func (w StatsWindow) IsOverdue(order *SalesOrder) bool {
	if order == nil || !order.Status.Shippable() || order.ExpectedDeliveryDate == nil {
		return false
	}
	return CalendarDate(*order.ExpectedDeliveryDate).Before(w.Today)
}

// IsUrgent reports whether an open order is expected within the urgent horizon.
func (w StatsWindow) IsUrgent(order *SalesOrder) bool {
	if order == nil || !order.Status.Shippable() || order.ExpectedDeliveryDate == nil {
		return false
	}
	expected := CalendarDate(*order.ExpectedDeliveryDate)
	return !expected.Before(w.Today) && !expected.After(w.UrgentUntil)
}

// CompletedToday reports whether a fully shipped order was first shipped inside the window day.
func (w StatsWindow) CompletedToday(order *SalesOrder) bool {
	if order == nil || order.Status != StatusShipped || order.ShippedAt == nil {
		return false
	}
	at := *order.ShippedAt
	return !at.Before(w.DayStart) && at.Before(w.DayEnd)
}

// ComputeStats aggregates counters over a set of orders.
func ComputeStats(orders []*SalesOrder, asOf time.Time) ShipmentStats {
	window := NewStatsWindow(asOf)
	var stats ShipmentStats
	for _, order := range orders {
		if order == nil {
			continue
		}
		switch order.Status {
		case StatusConfirmed:
			stats.Pending++
		case StatusPartiallyShipped:
			stats.Partial++
		}
		if window.CompletedToday(order) {
			stats.CompletedToday++
		}
		if window.IsOverdue(order) {
			stats.Overdue++
		}
		if window.IsUrgent(order) {
			stats.Urgent++
		}
	}
	return stats
}
