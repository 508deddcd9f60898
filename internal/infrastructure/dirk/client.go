// Package dirk searches Dirk through its GraphQL API in two phases: a text
// search for product ids, then a price lookup for those ids at one store.
package dirk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/httputil"
)

const (
	graphqlPath = "/graphql"
	// MaxResults bounds phase one and therefore the id list of phase two
	MaxResults = 20
	// DefaultStoreID is the store whose prices are looked up
	DefaultStoreID = 66
)

const searchProductsQuery = `query SearchProducts($search: String!, $limit: Int!) {
  searchProducts(search: $search, limit: $limit) {
    products { productId headerText packaging }
  }
}`

const listProductsQuery = `query ListProducts($productIds: [Int!]!, $storeId: Int!) {
  listProducts(productIds: $productIds, storeId: $storeId) {
    productId
    normalPrice
    offerPrice
    productInformation { headerText packaging image }
  }
}`

// Connector is the Dirk retailer connector. It is stateless.
type Connector struct {
	http       *httputil.Client
	graphqlURL string
	storeID    int
	log        *zap.Logger
}

// NewConnector creates the connector; a storeID of 0 uses DefaultStoreID
func NewConnector(client *httputil.Client, baseURL string, storeID int, log *zap.Logger) *Connector {
	if storeID <= 0 {
		storeID = DefaultStoreID
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		http:       client,
		graphqlURL: baseURL + graphqlPath,
		storeID:    storeID,
		log:        log.Named("dirk"),
	}
}

// Retailer implements domain.Connector
func (c *Connector) Retailer() domain.Retailer {
	return domain.RetailerDirk
}

// Search implements domain.Connector
func (c *Connector) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
	candidates, err := c.searchProducts(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search phase: %w", err)
	}
	if len(candidates) == 0 {
		return []domain.RawProduct{}, nil
	}

	ids := make([]int64, len(candidates))
	for i, p := range candidates {
		ids[i] = p.ProductID
	}

	priced, err := c.listProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("price phase: %w", err)
	}

	c.log.Debug("search completed",
		zap.String("query", req.Query),
		zap.Int("candidates", len(candidates)),
		zap.Int("priced", len(priced)))

	return MergeProducts(candidates, priced), nil
}

func (c *Connector) searchProducts(ctx context.Context, query string) ([]searchHit, error) {
	var data struct {
		SearchProducts struct {
			Products []searchHit `json:"products"`
		} `json:"searchProducts"`
	}
	vars := map[string]any{"search": query, "limit": MaxResults}
	if err := c.do(ctx, searchProductsQuery, vars, &data); err != nil {
		return nil, err
	}

	hits := data.SearchProducts.Products
	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}
	return hits, nil
}

func (c *Connector) listProducts(ctx context.Context, ids []int64) ([]pricedProduct, error) {
	var data struct {
		ListProducts []pricedProduct `json:"listProducts"`
	}
	vars := map[string]any{"productIds": ids, "storeId": c.storeID}
	if err := c.do(ctx, listProductsQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.ListProducts, nil
}

// graphqlRequest is the standard GraphQL POST body
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Connector) do(ctx context.Context, query string, vars map[string]any, out any) error {
	var resp graphqlResponse
	if err := c.http.PostJSON(ctx, c.graphqlURL, nil, graphqlRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			messages[i] = e.Message
		}
		return fmt.Errorf("%w: graphql: %s", domain.ErrUpstream, strings.Join(messages, "; "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%w: graphql response without data", domain.ErrUpstream)
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%w: failed to decode graphql data: %v", domain.ErrUpstream, err)
	}
	return nil
}
