package usecases

import (
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
)

// BrokerCatalog lists the wired brokers.
type BrokerCatalog interface {
	Catalog() []broker.CatalogEntry
}

// ListBrokersUseCase exposes the supported broker catalog.
type ListBrokersUseCase struct {
	catalog BrokerCatalog
}

// NewListBrokersUseCase creates a new ListBrokersUseCase
func NewListBrokersUseCase(catalog BrokerCatalog) *ListBrokersUseCase {
	return &ListBrokersUseCase{catalog: catalog}
}

// Execute returns the brokers in name order.
func (uc *ListBrokersUseCase) Execute() []dto.BrokerInfo {
	entries := uc.catalog.Catalog()
	out := make([]dto.BrokerInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.BrokerInfo{
			Name:           e.Name.String(),
			DisplayName:    e.DisplayName,
			AuthMode:       e.AuthMode.String(),
			Timezone:       e.TimezoneName(),
			SessionCutover: e.SessionCutover,
			DocsURL:        e.DocsURL,
		})
	}
	return out
}
