// Package jumbo searches Jumbo through its public mobile API; no authentication needed.
package jumbo

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/httputil"
)

const (
	searchPath = "/v17/search"
	// MaxResults is the page size requested from the retailer
	MaxResults = 20
)

// Connector is the Jumbo retailer connector. It is stateless.
type Connector struct {
	http      *httputil.Client
	searchURL string
	log       *zap.Logger
}

// NewConnector creates the connector
func NewConnector(client *httputil.Client, baseURL string, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		http:      client,
		searchURL: baseURL + searchPath,
		log:       log.Named("jumbo"),
	}
}

// Retailer implements domain.Connector
func (c *Connector) Retailer() domain.Retailer {
	return domain.RetailerJumbo
}

// Search implements domain.Connector
func (c *Connector) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("offset", "0")
	params.Set("limit", strconv.Itoa(MaxResults))

	var resp searchResponse
	if err := c.http.GetJSON(ctx, c.searchURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	c.log.Debug("search completed", zap.String("query", req.Query), zap.Int("hits", len(resp.Products.Data)))
	return MapProducts(resp.Products.Data, MaxResults), nil
}
