package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

var _ ports.CustomerDirectory = (*CustomerDirectory)(nil)

// CustomerDirectory resolves customer names from the organisations and individual_customers tables.
type CustomerDirectory struct {
	db *gorm.DB
}

func NewCustomerDirectory(db *gorm.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

// DisplayNames issues at most one query per customer kind.
func (d *CustomerDirectory) DisplayNames(ctx context.Context, refs []domain.CustomerRef) (map[domain.CustomerRef]string, error) {
	if d == nil || d.db == nil {
		return nil, errors.New("postgres customer directory not configured")
	}
	var orgIDs, individualIDs []string
	for _, ref := range refs {
		switch ref.Kind {
		case domain.CustomerOrganisation:
			orgIDs = append(orgIDs, ref.ID)
		case domain.CustomerIndividual:
			individualIDs = append(individualIDs, ref.ID)
		}
	}

	db := d.db.WithContext(ctx)
	organisations := map[string]domain.Organisation{}
	if len(orgIDs) > 0 {
		var rows []organisationRecord
		if err := db.Where("id IN ?", orgIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			organisations[row.ID] = domain.Organisation{ID: row.ID, LegalName: row.LegalName, TradeName: row.TradeName}
		}
	}
	individuals := map[string]domain.IndividualCustomer{}
	if len(individualIDs) > 0 {
		var rows []individualCustomerRecord
		if err := db.Where("id IN ?", individualIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			individuals[row.ID] = domain.IndividualCustomer{ID: row.ID, FirstName: row.FirstName, LastName: row.LastName}
		}
	}

	names := make(map[domain.CustomerRef]string, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case domain.CustomerOrganisation:
			if org, ok := organisations[ref.ID]; ok {
				names[ref] = org.DisplayName()
				continue
			}
		case domain.CustomerIndividual:
			if customer, ok := individuals[ref.ID]; ok {
				names[ref] = customer.DisplayName()
				continue
			}
		}
		names[ref] = domain.UnknownCustomerName(ref.Kind)
	}
	return names, nil
}

// SaveOrganisation upserts an organisation. Used by seeding and tests.
func (d *CustomerDirectory) SaveOrganisation(ctx context.Context, org domain.Organisation) error {
	if d == nil || d.db == nil {
		return errors.New("postgres customer directory not configured")
	}
	row := organisationRecord{ID: org.ID, LegalName: org.LegalName, TradeName: org.TradeName}
	return d.db.WithContext(ctx).Save(&row).Error
}

// SaveIndividual upserts an individual customer. Used by seeding and tests.
func (d *CustomerDirectory) SaveIndividual(ctx context.Context, customer domain.IndividualCustomer) error {
	if d == nil || d.db == nil {
		return errors.New("postgres customer directory not configured")
	}
	row := individualCustomerRecord{ID: customer.ID, FirstName: customer.FirstName, LastName: customer.LastName}
	return d.db.WithContext(ctx).Save(&row).Error
}

