package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
	}
}

// setupTestRouter creates a test router without a price service
func setupTestRouter() *gin.Engine {
	handler := NewHandler(nil, nil)
	if handler == nil {
		panic("setupTestRouter: NewHandler returned nil")
	}

	router := SetupRouter(testConfig(), handler, nil)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}

	return router
}

// setupTestRouterWithService wires a real PriceService over the given connectors
func setupTestRouterWithService(connectors ...domain.Connector) *gin.Engine {
	prices := usecase.NewPriceService(connectors, usecase.PriceServiceConfig{Timeout: time.Second}, nil)
	return SetupRouter(testConfig(), NewHandler(prices, nil), nil)
}

// fixedConnector answers every search with the same products and records the query
func fixedConnector(retailer domain.Retailer, seen *domain.SearchRequest, products ...domain.RawProduct) domain.Connector {
	return domain.ConnectorFunc{
		ID: retailer,
		Fn: func(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
			if seen != nil {
				*seen = req
			}
			return products, nil
		},
	}
}

func failingConnector(retailer domain.Retailer, err error) domain.Connector {
	return domain.ConnectorFunc{
		ID: retailer,
		Fn: func(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
			return nil, err
		},
	}
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		w := doGet(router, "/health")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "pricelens-backend" {
			t.Errorf("service = %v, want pricelens-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header should be set")
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestPriceSearchEndpoint tests the price search endpoint
func TestPriceSearchEndpoint(t *testing.T) {
	t.Run("returns service unavailable without a price service", func(t *testing.T) {
		router := setupTestRouter()

		w := doGet(router, "/api/v1/prices/search?q=melk")

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		errorMsg, ok := response["error"].(string)
		if !ok || !strings.Contains(errorMsg, "not configured") {
			t.Errorf("error = %v, want to contain 'not configured'", response["error"])
		}
	})

	t.Run("returns merged products and per-retailer results", func(t *testing.T) {
		router := setupTestRouterWithService(
			fixedConnector(domain.RetailerAH, nil,
				domain.RawProduct{ID: "a1", Name: "AH Halfvolle melk", Price: 115, UnitQuantity: "1 l", Retailer: domain.RetailerAH}),
			fixedConnector(domain.RetailerJumbo, nil,
				domain.RawProduct{ID: "j1", Name: "Campina Halfvolle melk", Price: 109, UnitQuantity: "1 liter", Retailer: domain.RetailerJumbo}),
			failingConnector(domain.RetailerDirk, errors.New("graphql down")),
		)

		w := doGet(router, "/api/v1/prices/search?q=melk")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.Query != "melk" || response.QtyFilter != nil {
			t.Errorf("query = %q qtyFilter = %v", response.Query, response.QtyFilter)
		}
		if len(response.Results) != 3 {
			t.Fatalf("results = %d, want 3", len(response.Results))
		}
		if response.Results[2].Error == nil {
			t.Error("dirk result should carry its error")
		}
		if len(response.Products) != 2 || response.Products[0].ID != "j1" {
			t.Errorf("products = %+v, want cheapest first", response.Products)
		}
		if response.Products[0].UnitPrice == nil || *response.Products[0].UnitPrice != "€ 1,09 / liter" {
			t.Errorf("unitPrice = %v", response.Products[0].UnitPrice)
		}
		if response.Products[0].Brand != "Campina" {
			t.Errorf("brand = %q, want Campina", response.Products[0].Brand)
		}
		if len(response.Facets.Quantities) != 1 || response.Facets.Quantities[0].Value != "1_l" {
			t.Errorf("quantity facets = %+v", response.Facets.Quantities)
		}
	})

	t.Run("splits an embedded quantity off the query", func(t *testing.T) {
		var seen domain.SearchRequest
		router := setupTestRouterWithService(
			fixedConnector(domain.RetailerAH, &seen,
				domain.RawProduct{ID: "k1", Name: "Magere kwark", Price: 139, UnitQuantity: "500 g", Retailer: domain.RetailerAH},
				domain.RawProduct{ID: "k2", Name: "Magere kwark", Price: 219, UnitQuantity: "1 kg", Retailer: domain.RetailerAH}),
		)

		w := doGet(router, "/api/v1/prices/search?q=kwark+1kg&household=h-42")

		var response SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if seen.Query != "kwark" || seen.HouseholdID != "h-42" {
			t.Errorf("connector saw %+v, want query kwark for household h-42", seen)
		}
		if response.QtyFilter == nil || *response.QtyFilter != "1_kg" {
			t.Errorf("qtyFilter = %v, want 1_kg", response.QtyFilter)
		}
		if len(response.Products) != 1 || response.Products[0].ID != "k2" {
			t.Errorf("products = %+v, want only the 1 kg package", response.Products)
		}
		if len(response.Results[0].Products) != 2 {
			t.Error("raw results should stay unfiltered")
		}
	})

	t.Run("explicit qty keeps the query as typed", func(t *testing.T) {
		var seen domain.SearchRequest
		router := setupTestRouterWithService(fixedConnector(domain.RetailerAH, &seen))

		doGet(router, "/api/v1/prices/search?q=cola+1,5l&qty=500_ml")

		if seen.Query != "cola 1,5l" {
			t.Errorf("connector query = %q, want %q", seen.Query, "cola 1,5l")
		}
	})

	t.Run("sorts by unit price", func(t *testing.T) {
		router := setupTestRouterWithService(
			fixedConnector(domain.RetailerAH, nil,
				domain.RawProduct{ID: "small", Name: "Kwark", Price: 139, UnitQuantity: "500 g", Retailer: domain.RetailerAH},
				domain.RawProduct{ID: "big", Name: "Kwark", Price: 219, UnitQuantity: "1 kg", Retailer: domain.RetailerAH}),
		)

		w := doGet(router, "/api/v1/prices/search?q=kwark&sort=unit_price")

		var response SearchResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(response.Products) != 2 || response.Products[0].ID != "big" {
			t.Errorf("products = %+v, want the 1 kg package first", response.Products)
		}
	})

	t.Run("returns 400 for missing q", func(t *testing.T) {
		router := setupTestRouterWithService(fixedConnector(domain.RetailerAH, nil))

		for _, path := range []string{"/api/v1/prices/search", "/api/v1/prices/search?q=+++"} {
			w := doGet(router, path)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusBadRequest)
			}
		}
	})

	t.Run("returns 400 for unknown sort", func(t *testing.T) {
		router := setupTestRouterWithService(fixedConnector(domain.RetailerAH, nil))

		w := doGet(router, "/api/v1/prices/search?q=melk&sort=relevance")

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("requires correct path", func(t *testing.T) {
		router := setupTestRouter()

		incorrectPaths := []string{
			"/api/v1/prices",
			"/api/prices/search",
			"/prices/search",
		}

		for _, path := range incorrectPaths {
			w := doGet(router, path)
			if w.Code != http.StatusNotFound {
				t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestRetailersEndpoint tests the active retailer listing
func TestRetailersEndpoint(t *testing.T) {
	router := setupTestRouterWithService(
		fixedConnector(domain.RetailerPlus, nil),
		fixedConnector(domain.RetailerAH, nil),
	)

	w := doGet(router, "/api/v1/prices/retailers")

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		Retailers []RetailerInfo `json:"retailers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	want := []RetailerInfo{
		{ID: domain.RetailerAH, Label: "Albert Heijn"},
		{ID: domain.RetailerPlus, Label: "Plus"},
	}
	if len(response.Retailers) != len(want) {
		t.Fatalf("retailers = %+v, want %+v", response.Retailers, want)
	}
	for i := range want {
		if response.Retailers[i] != want[i] {
			t.Errorf("retailers[%d] = %+v, want %+v", i, response.Retailers[i], want[i])
		}
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "chrome-extension://abcdefghijklmnop" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "chrome-extension://abcdefghijklmnop")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})

	t.Run("search endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/api/v1/prices/search?q=melk", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:3000")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		// Add a test route that panics
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := doGet(router, "/panic")

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("panic response should be JSON: %v", err)
		}
		if response["error"] != "Internal server error" {
			t.Errorf("error = %v, want 'Internal server error'", response["error"])
		}
	})
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []string{
		"/health",
		"/api/v1/prices/search?q=melk",
		"/api/v1/prices/retailers",
	}

	for _, path := range endpoints {
		t.Run(path, func(t *testing.T) {
			router := setupTestRouter()

			w := doGet(router, path)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			if err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
