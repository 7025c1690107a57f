package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AnshSingh-2024/COMMIT.ENV/config"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/cache"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/marketplace"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/infrastructure/metrics"
	"github.com/AnshSingh-2024/COMMIT.ENV/internal/usecase"
)

const testCartBaseURL = "https://www.amazon.in/gp/aws/cart/add.html?"

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
		Cart: config.CartConfig{
			BaseURL:        testCartBaseURL,
			MaxConcurrency: 1,
		},
	}
}

// setupTestRouter creates a test router without services; service endpoints answer 501
func setupTestRouter() *gin.Engine {
	return SetupRouter(testConfig(), NewHandler(nil, nil), nil, nil)
}

// fakeFetcher serves canned search pages keyed by query
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f fakeFetcher) Fetch(_ context.Context, query string) (string, error) {
	if err, ok := f.errs[query]; ok {
		return "", err
	}
	return f.pages[query], nil
}

func listing(asin, inner string) string {
	return fmt.Sprintf(`<div data-component-type="s-search-result" data-asin="%s">%s</div>`, asin, inner)
}

func searchPage(listings ...string) string {
	return "<html><body>" + strings.Join(listings, "") + "</body></html>"
}

// setupTestRouterWithServices wires the real services over a fake fetcher
func setupTestRouterWithServices(fetcher domain.SearchFetcher) (*gin.Engine, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cfg := testConfig()

	resolutions := usecase.NewResolutionService(
		cache.NewMemoryCache(),
		fetcher,
		marketplace.NewExtractor(),
		usecase.ResolutionServiceConfig{},
		nil,
		m,
	)
	carts := usecase.NewCartService(resolutions, usecase.CartServiceConfig{
		BaseURL:        cfg.Cart.BaseURL,
		MaxConcurrency: cfg.Cart.MaxConcurrency,
	}, nil, m)

	return SetupRouter(cfg, NewHandler(resolutions, carts), nil, reg), reg
}

func defaultFetcher() fakeFetcher {
	return fakeFetcher{
		pages: map[string]string{
			"milk": searchPage(
				listing("B0ADMILK", `<span>Sponsored</span>`),
				listing("B0MILK01", ""),
				listing("B0MILK02", `<span class="a-badge-text">Best Seller</span>`),
			),
			"eggs": searchPage(
				listing("B0EGGS01", ""),
			),
			"saffron": searchPage(
				listing("B0SAFF01", `<span>Currently unavailable.</span>`),
				listing("B0SAFF02", `<span>SPONSORED</span>`),
			),
			"unicorn": searchPage(),
		},
		errs: map[string]error{
			"caviar": &domain.HTTPStatusError{Code: http.StatusServiceUnavailable},
		},
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return w, response
}

func detailOf(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	detail, ok := response["detail"].(map[string]interface{})
	if !ok {
		t.Fatalf("detail = %v, want object", response["detail"])
	}
	return detail
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		w, response := doJSON(t, setupTestRouter(), http.MethodGet, "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "cartlink-backend" {
			t.Errorf("service = %v, want cartlink-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req := httptest.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestEndpointsWithoutServices(t *testing.T) {
	router := setupTestRouter()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/items/resolve?q=milk"},
		{http.MethodPost, "/api/v1/shopping"},
	} {
		w, response := doJSON(t, router, tc.method, tc.path, `{"items":{"milk":1}}`)

		if w.Code != http.StatusNotImplemented {
			t.Errorf("%s %s: Status = %d, want %d", tc.method, tc.path, w.Code, http.StatusNotImplemented)
		}
		if msg, _ := detailOf(t, response)["error"].(string); !strings.Contains(msg, "not configured") {
			t.Errorf("error = %q, want to contain 'not configured'", msg)
		}
	}
}

func TestResolveItemEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantStatus string
		wantASIN   string
	}{
		{name: "best seller", query: "milk", wantCode: http.StatusOK, wantStatus: "best_seller", wantASIN: "B0MILK02"},
		{name: "top result", query: "eggs", wantCode: http.StatusOK, wantStatus: "top_result", wantASIN: "B0EGGS01"},
		{name: "no in-stock results", query: "saffron", wantCode: http.StatusOK, wantStatus: "no_in_stock_results_found"},
		{name: "no results", query: "unicorn", wantCode: http.StatusOK, wantStatus: "no_results_found"},
		{name: "fetch failure", query: "caviar", wantCode: http.StatusBadGateway, wantStatus: "error"},
		{name: "blank query", query: "%20%20", wantCode: http.StatusBadRequest, wantStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupTestRouterWithServices(defaultFetcher())

			w, response := doJSON(t, router, http.MethodGet, "/api/v1/items/resolve?q="+tt.query, "")

			if w.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantCode)
			}
			if response["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", response["status"], tt.wantStatus)
			}
			if tt.wantASIN != "" && response["asin"] != tt.wantASIN {
				t.Errorf("asin = %v, want %s", response["asin"], tt.wantASIN)
			}
			if tt.wantASIN == "" {
				if _, ok := response["asin"]; ok {
					t.Errorf("asin = %v, want absent", response["asin"])
				}
			}
		})
	}
}

func TestShoppingEndpoint(t *testing.T) {
	t.Run("returns cart URL", func(t *testing.T) {
		router, _ := setupTestRouterWithServices(defaultFetcher())

		w, response := doJSON(t, router, http.MethodPost, "/api/v1/shopping", `{"items":{"milk":2,"eggs":12}}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		want := testCartBaseURL + "&ASIN.1=B0EGGS01&Quantity.1=12&ASIN.2=B0MILK02&Quantity.2=2"
		if response["cart_url"] != want {
			t.Errorf("cart_url = %v, want %s", response["cart_url"], want)
		}
	})

	t.Run("frontend path is served", func(t *testing.T) {
		router, _ := setupTestRouterWithServices(defaultFetcher())

		w, response := doJSON(t, router, http.MethodPost, "/shopping", `{"items":{"eggs":1}}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if response["cart_url"] != testCartBaseURL+"&ASIN.1=B0EGGS01&Quantity.1=1" {
			t.Errorf("cart_url = %v", response["cart_url"])
		}
	})

	t.Run("frontend body is accepted", func(t *testing.T) {
		router, _ := setupTestRouterWithServices(defaultFetcher())

		w, response := doJSON(t, router, http.MethodPost, "/shopping", `{"additionalProp1":{"milk":1,"eggs":1}}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		want := testCartBaseURL + "&ASIN.1=B0EGGS01&Quantity.1=1&ASIN.2=B0MILK02&Quantity.2=1"
		if response["cart_url"] != want {
			t.Errorf("cart_url = %v, want %s", response["cart_url"], want)
		}
	})

	tests := []struct {
		name       string
		body       string
		wantCode   int
		wantItem   string
		wantStatus string
	}{
		{name: "invalid JSON", body: `{invalid json}`, wantCode: http.StatusBadRequest},
		{name: "missing items", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "no items", body: `{"items":{}}`, wantCode: http.StatusBadRequest},
		{name: "null items", body: `{"items":null}`, wantCode: http.StatusBadRequest},
		{name: "empty frontend cart", body: `{"additionalProp1":{}}`, wantCode: http.StatusBadRequest},
		{name: "non-positive quantity", body: `{"items":{"milk":0}}`, wantCode: http.StatusBadRequest},
		{name: "non-integer quantity", body: `{"items":{"milk":"two"}}`, wantCode: http.StatusBadRequest},
		{name: "item not in stock", body: `{"items":{"milk":1,"saffron":1}}`, wantCode: http.StatusNotFound, wantItem: "saffron", wantStatus: "no_in_stock_results_found"},
		{name: "item not found", body: `{"items":{"unicorn":1}}`, wantCode: http.StatusNotFound, wantItem: "unicorn", wantStatus: "no_results_found"},
		{name: "item fetch failed", body: `{"items":{"caviar":1,"milk":1}}`, wantCode: http.StatusBadGateway, wantItem: "caviar", wantStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := setupTestRouterWithServices(defaultFetcher())

			w, response := doJSON(t, router, http.MethodPost, "/api/v1/shopping", tt.body)

			if w.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if _, ok := response["cart_url"]; ok {
				t.Errorf("cart_url present in failure response")
			}

			detail := detailOf(t, response)
			if msg, _ := detail["error"].(string); msg == "" {
				t.Error("expected detail.error in response")
			}
			if tt.wantItem != "" && detail["item"] != tt.wantItem {
				t.Errorf("detail.item = %v, want %s", detail["item"], tt.wantItem)
			}
			if tt.wantStatus != "" && detail["status"] != tt.wantStatus {
				t.Errorf("detail.status = %v, want %s", detail["status"], tt.wantStatus)
			}
		})
	}

	t.Run("missing base URL is a server error", func(t *testing.T) {
		cfg := testConfig()
		carts := usecase.NewCartService(&staticResolver{}, usecase.CartServiceConfig{}, nil, nil)
		router := SetupRouter(cfg, NewHandler(nil, carts), nil, nil)

		w, _ := doJSON(t, router, http.MethodPost, "/api/v1/shopping", `{"items":{"milk":1}}`)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

func TestProxyKeyNeverReachesClients(t *testing.T) {
	const apiKey = "SUPERSECRET123"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client, err := marketplace.NewClient(marketplace.Options{
		Mode:          marketplace.ModeProxy,
		ProxyEndpoint: endpoint,
		ProxyAPIKey:   apiKey,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	router, _ := setupTestRouterWithServices(client)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/items/resolve?q=milk", ""},
		{http.MethodPost, "/shopping", `{"additionalProp1":{"milk":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, _ := doJSON(t, router, tt.method, tt.path, tt.body)

			if w.Code != http.StatusBadGateway {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
			}
			if strings.Contains(w.Body.String(), apiKey) {
				t.Errorf("response body leaks the proxy key: %s", w.Body.String())
			}
		})
	}
}

type staticResolver struct{}

func (staticResolver) ResolveItem(context.Context, string) domain.ResolutionOutcome {
	return domain.TopResult("B0STATIC")
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRouterWithServices(defaultFetcher())

	_, _ = doJSON(t, router, http.MethodGet, "/api/v1/items/resolve?q=milk", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `cartlink_resolutions_total{status="best_seller"} 1`) {
		t.Errorf("metrics output missing resolution counter:\n%s", w.Body.String())
	}

	// no gatherer, no endpoint
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	setupTestRouter().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Status without gatherer = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		router := setupTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdefghijklmnop" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
		}
	})

	t.Run("shopping preflight for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/shopping", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter()
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w, response := doJSON(t, router, http.MethodGet, "/panic", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if detailOf(t, response)["error"] != "internal server error" {
		t.Errorf("detail = %v", response["detail"])
	}
	if w.Header().Get(HeaderRequestID) == "" {
		t.Error("expected request id header on recovered response")
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	router, _ := setupTestRouterWithServices(defaultFetcher())

	endpoints := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/health", ""},
		{"GET", "/api/v1/items/resolve?q=eggs", ""},
		{"POST", "/api/v1/shopping", `{"items":{"eggs":1}}`},
		{"POST", "/api/v1/shopping", ``},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req := httptest.NewRequest(endpoint.method, endpoint.path, strings.NewReader(endpoint.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want %q", got, "application/json; charset=utf-8")
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
