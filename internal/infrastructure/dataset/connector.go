package dataset

import (
	"context"

	"github.com/pricelens/backend/internal/domain"
)

// Connector serves one retailer's block of the dataset
type Connector struct {
	dataset  *Dataset
	retailer domain.Retailer
}

// Connector adapts the dataset to domain.Connector for a retailer
func (d *Dataset) Connector(retailer domain.Retailer) *Connector {
	return &Connector{dataset: d, retailer: retailer}
}

// Retailer implements domain.Connector
func (c *Connector) Retailer() domain.Retailer {
	return c.retailer
}

// Search implements domain.Connector
func (c *Connector) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
	return c.dataset.Search(ctx, c.retailer, req.Query)
}
