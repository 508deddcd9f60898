package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// PriceSearcher is what the handlers need from the price service
type PriceSearcher interface {
	SearchAll(ctx context.Context, query, householdID string) ([]domain.RetailerResult, error)
	Retailers() []domain.Retailer
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	prices PriceSearcher
	log    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(prices PriceSearcher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		prices: prices,
		log:    log.Named("http"),
	}
}

// SearchResponse is the body of a price search
type SearchResponse struct {
	Query     string                  `json:"query"`
	QtyFilter *string                 `json:"qtyFilter"`
	Results   []domain.RetailerResult `json:"results"`
	Products  []usecase.ViewProduct   `json:"products"`
	Facets    usecase.Facets          `json:"facets"`
}

// RetailerInfo describes one active retailer
type RetailerInfo struct {
	ID    domain.Retailer `json:"id"`
	Label string          `json:"label"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// SearchPrices handles GET /api/v1/prices/search
func (h *Handler) SearchPrices(c *gin.Context) {
	if h.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Price search is not configured",
		})
		return
	}

	sortOrder, err := usecase.ParseSortOrder(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sort must be 'price' or 'unit_price'",
		})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	qtyFilter := strings.TrimSpace(c.Query("qty"))
	if qtyFilter == "" {
		// "kwark 1kg" searches for "kwark" and keeps only 1 kg packages
		if extracted := usecase.ExtractQuantityFromQuery(query); extracted.HasFilter {
			query = extracted.CleanQuery
			qtyFilter = extracted.QtyFilter
		}
	}

	results, err := h.prices.SearchAll(c.Request.Context(), query, c.Query("household"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "q is required",
			})
			return
		}
		h.log.Error("price search failed",
			zap.String("query", query),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	view := usecase.BuildView(results, usecase.ViewOptions{
		Sort:     sortOrder,
		Brand:    c.Query("brand"),
		Quantity: qtyFilter,
	})

	c.JSON(http.StatusOK, SearchResponse{
		Query:     query,
		QtyFilter: domain.StringPtr(qtyFilter),
		Results:   results,
		Products:  view.Products,
		Facets:    view.Facets,
	})
}

// ListRetailers handles GET /api/v1/prices/retailers
func (h *Handler) ListRetailers(c *gin.Context) {
	retailers := make([]RetailerInfo, 0)
	if h.prices != nil {
		for _, r := range h.prices.Retailers() {
			retailers = append(retailers, RetailerInfo{ID: r, Label: r.Label()})
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"retailers": retailers,
	})
}
