package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestComputeStats(t *testing.T) {
	asOf := time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)
	shippedToday := time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)
	shippedYesterday := time.Date(2024, 6, 11, 23, 59, 0, 0, time.UTC)

	orders := []*SalesOrder{
		{ID: "late-confirmed", Status: StatusConfirmed, ExpectedDeliveryDate: date(2024, 6, 11)},
		{ID: "late-partial", Status: StatusPartiallyShipped, ExpectedDeliveryDate: date(2024, 6, 1)},
		{ID: "due-today", Status: StatusConfirmed, ExpectedDeliveryDate: date(2024, 6, 12)},
		{ID: "due-in-3", Status: StatusPartiallyShipped, ExpectedDeliveryDate: date(2024, 6, 15)},
		{ID: "due-in-4", Status: StatusConfirmed, ExpectedDeliveryDate: date(2024, 6, 16)},
		{ID: "no-date", Status: StatusConfirmed},
		{ID: "shipped-today", Status: StatusShipped, ShippedAt: &shippedToday, ExpectedDeliveryDate: date(2024, 6, 1)},
		{ID: "shipped-yesterday", Status: StatusShipped, ShippedAt: &shippedYesterday},
		{ID: "draft", Status: StatusDraft, ExpectedDeliveryDate: date(2024, 6, 1)},
	}

	stats := ComputeStats(orders, asOf)
	require.Equal(t, int64(4), stats.Pending)
	require.Equal(t, int64(2), stats.Partial)
	require.Equal(t, int64(1), stats.CompletedToday)
	require.Equal(t, int64(2), stats.Overdue)
	require.Equal(t, int64(2), stats.Urgent)
}

func TestComputeStats_EmptyIsAllZero(t *testing.T) {
	require.Equal(t, ShipmentStats{}, ComputeStats(nil, time.Now()))
}

func TestStatsWindow_UsesAsOfLocationForDayBoundary(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	asOf := time.Date(2024, 6, 12, 0, 30, 0, 0, paris)
	shipped := time.Date(2024, 6, 11, 22, 45, 0, 0, time.UTC) // 00:45 in Paris
	order := &SalesOrder{Status: StatusShipped, ShippedAt: &shipped}
	require.True(t, NewStatsWindow(asOf).CompletedToday(order))
}
