package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	unknownOrganisationName = "Unknown organisation"
	unknownCustomerName     = "Unknown customer"
)

// Organisation is a business customer.
type Organisation struct {
	ID        string
	LegalName string
	TradeName string
}

// DisplayName prefers the trade name over the legal name.
func (o *Organisation) DisplayName() string {
	if o == nil {
		return unknownOrganisationName
	}
	if name := strings.TrimSpace(o.TradeName); name != "" {
		return name
	}
	if name := strings.TrimSpace(o.LegalName); name != "" {
		return name
	}
	return unknownOrganisationName
}

// IndividualCustomer is a private customer.
type IndividualCustomer struct {
	ID        string
	FirstName string
	LastName  string
}

// DisplayName joins first and last name.
func (c *IndividualCustomer) DisplayName() string {
	if c == nil {
		return unknownCustomerName
	}
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name == "" {
		return unknownCustomerName
	}
	return name
}

// UnknownCustomerName is the fallback label for a reference that cannot be resolved.
func UnknownCustomerName(kind CustomerKind) string {
	if kind == CustomerOrganisation {
		return unknownOrganisationName
	}
	return unknownCustomerName
}

// ReadyFilter narrows the list of orders awaiting shipment.
type ReadyFilter struct {
	Status      Status
	Search      string
	UrgentOnly  bool
	OverdueOnly bool
	AsOf        time.Time
}

// Statuses returns the order statuses covered by the filter.
func (f ReadyFilter) Statuses() []Status {
	if f.Status.Shippable() {
		return []Status{f.Status}
	}
	return []Status{StatusConfirmed, StatusPartiallyShipped}
}

// ShippedFilter narrows the list of shipped orders.
type ShippedFilter struct {
	Status Status
	Search string
}

// Statuses returns the order statuses covered by the filter.
func (f ShippedFilter) Statuses() []Status {
	if f.Status == StatusShipped || f.Status == StatusDelivered {
		return []Status{f.Status}
	}
	return []Status{StatusShipped, StatusDelivered}
}

// OrderSummary is a worklist row.
type OrderSummary struct {
	Order        *SalesOrder
	CustomerName string
	TotalOrdered int32
	TotalShipped int32
	Urgent       bool
	Overdue      bool
}

// Summarize builds a worklist row for an order.
func Summarize(order *SalesOrder, window StatsWindow) OrderSummary {
	summary := OrderSummary{Order: order}
	for _, item := range order.Items {
		summary.TotalOrdered += item.QuantityOrdered
		summary.TotalShipped += item.QuantityShipped
	}
	summary.Urgent = window.IsUrgent(order)
	summary.Overdue = window.IsOverdue(order)
	return summary
}

// MatchesSearch performs a case-insensitive substring match on the order number.
func MatchesSearch(order *SalesOrder, search string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(order.OrderNumber), strings.ToLower(search))
}

// SortByExpectedDelivery orders by expected delivery date ascending with undated orders last.
func SortByExpectedDelivery(orders []*SalesOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].ExpectedDeliveryDate, orders[j].ExpectedDeliveryDate
		switch {
		case a == nil && b == nil:
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// SortByShippedAtDesc orders by first shipment time, newest first.
func SortByShippedAtDesc(orders []*SalesOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].ShippedAt, orders[j].ShippedAt
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
