package memory

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var _ ports.CustomerDirectory = (*CustomerDirectory)(nil)

// CustomerDirectory resolves customer names from in-memory maps.
type CustomerDirectory struct {
	mu            sync.RWMutex
	organisations map[string]domain.Organisation
	individuals   map[string]domain.IndividualCustomer
}

func NewCustomerDirectory() *CustomerDirectory {
	return &CustomerDirectory{
		organisations: map[string]domain.Organisation{},
		individuals:   map[string]domain.IndividualCustomer{},
	}
}

func (d *CustomerDirectory) PutOrganisation(org domain.Organisation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.organisations[org.ID] = org
}

func (d *CustomerDirectory) PutIndividual(customer domain.IndividualCustomer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.individuals[customer.ID] = customer
}

// DisplayNames resolves every reference; unknown ids get the kind's fallback label.
func (d *CustomerDirectory) DisplayNames(_ context.Context, refs []domain.CustomerRef) (map[domain.CustomerRef]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make(map[domain.CustomerRef]string, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case domain.CustomerOrganisation:
			if org, ok := d.organisations[ref.ID]; ok {
				names[ref] = org.DisplayName()
				continue
			}
		case domain.CustomerIndividual:
			if customer, ok := d.individuals[ref.ID]; ok {
				names[ref] = customer.DisplayName()
				continue
			}
		}
		names[ref] = domain.UnknownCustomerName(ref.Kind)
	}
	return names, nil
}
