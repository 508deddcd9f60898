// Package picnic searches Picnic through a per-household authenticated session.
// Sessions are created and kept alive outside this service; the connector only
// looks one up, searches, and maps the result.
package picnic

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// MaxResults caps the items taken from a session search
const MaxResults = 20

// imageURLTemplate turns an image id into a URL
const imageURLTemplate = "https://storefront-prod.nl.picnicinternational.com/static/images/%s/medium.png"

// Connector is the Picnic retailer connector
type Connector struct {
	sessions domain.SessionProvider
	log      *zap.Logger
}

// NewConnector creates the connector
func NewConnector(sessions domain.SessionProvider, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		sessions: sessions,
		log:      log.Named("picnic"),
	}
}

// Retailer implements domain.Connector
func (c *Connector) Retailer() domain.Retailer {
	return domain.RetailerPicnic
}

// Search implements domain.Connector
func (c *Connector) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
	session, err := c.sessions.Session(ctx, req.HouseholdID)
	if err != nil {
		return nil, err
	}

	items, err := session.Search(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: session search: %v", domain.ErrUpstream, err)
	}

	products := MapItems(items, MaxResults)
	c.log.Debug("search completed",
		zap.String("household", req.HouseholdID),
		zap.Int("items", len(items)),
		zap.Int("mapped", len(products)))
	return products, nil
}

// MapItems converts the first limit session items; items with an unreadable
// price are skipped.
func MapItems(items []domain.SessionItem, limit int) []domain.RawProduct {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	result := make([]domain.RawProduct, 0, len(items))
	for _, item := range items {
		price, err := strconv.ParseInt(strings.TrimSpace(item.Price), 10, 64)
		if err != nil || price < 0 {
			continue
		}

		var image *string
		if item.ImageID != "" {
			image = domain.StringPtr(fmt.Sprintf(imageURLTemplate, item.ImageID))
		}

		result = append(result, domain.RawProduct{
			ID:           item.ID,
			Name:         item.Name,
			Price:        price,
			UnitQuantity: item.UnitQuantity,
			ImageURL:     image,
			Retailer:     domain.RetailerPicnic,
		})
	}
	return result
}
