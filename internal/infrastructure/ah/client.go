// Package ah searches Albert Heijn through its mobile API, which requires an
// anonymous bearer token.
package ah

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/httputil"
)

const (
	searchPath = "/mobile-services/product/search/v2"
	// MaxResults caps every search to the first records the retailer returns
	MaxResults = 20
)

// Connector is the Albert Heijn retailer connector
type Connector struct {
	http      *httputil.Client
	tokens    *TokenSource
	searchURL string
	log       *zap.Logger
}

// NewConnector creates the connector; tokens is shared process-wide
func NewConnector(client *httputil.Client, tokens *TokenSource, baseURL string, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		http:      client,
		tokens:    tokens,
		searchURL: baseURL + searchPath,
		log:       log.Named("ah"),
	}
}

// Retailer implements domain.Connector
func (c *Connector) Retailer() domain.Retailer {
	return domain.RetailerAH
}

// Search implements domain.Connector
func (c *Connector) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
	products, err := c.search(ctx, req.Query)
	if errors.Is(err, errTokenRejected) {
		// The cached token was revoked early; fetch a fresh one once
		c.tokens.Invalidate(ctx)
		products, err = c.search(ctx, req.Query)
	}
	if err != nil {
		return nil, err
	}
	return MapProducts(products, MaxResults), nil
}

var errTokenRejected = errors.New("token rejected")

func (c *Connector) search(ctx context.Context, query string) ([]searchProduct, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("sortOn", "RELEVANCE")
	params.Set("size", strconv.Itoa(MaxResults))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("X-Application", "AHWEBSHOP")

	var resp searchResponse
	err = c.http.GetJSON(ctx, c.searchURL+"?"+params.Encode(), header, &resp)
	if err != nil {
		if httputil.HasStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %w", errTokenRejected, err)
		}
		return nil, err
	}

	c.log.Debug("search completed", zap.String("query", query), zap.Int("hits", len(resp.Products)))
	return resp.Products, nil
}
