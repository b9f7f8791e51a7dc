package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-report-api/internal/cache"
	"retail-report-api/internal/handler"
	"retail-report-api/internal/middleware"
	"retail-report-api/internal/model"
	"retail-report-api/internal/repository"
	"retail-report-api/internal/router"
	"retail-report-api/internal/service"
)

const knownCustomerID = "7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01"

// fixedStore serves canned report data for handler tests.
type fixedStore struct {
	repository.RetailStore // panic on anything not overridden
}

func (fixedStore) RetailReport(ctx context.Context, sinceDays, limit int) (*model.RetailReport, error) {
	return &model.RetailReport{
		Summary:       model.ReportSummary{TotalActiveShoppers: 3, TotalCartValue: 150, AverageCartValue: 50},
		TopClients:    []model.TopClient{},
		ShoppingCarts: []model.ShoppingCart{},
	}, nil
}

func (fixedStore) ActiveShoppers(ctx context.Context, sinceDays, limit int) ([]model.ActiveShopper, error) {
	return []model.ActiveShopper{{UserID: knownCustomerID, Name: "Ada Swan"}}, nil
}

func (fixedStore) PopularItems(ctx context.Context, sinceDays, limit int) ([]model.PopularItem, error) {
	return []model.PopularItem{{Name: "Chips", Category: "Snacks", PurchaseCount: 12}}, nil
}

func (fixedStore) CustomerDetail(ctx context.Context, userID string, sinceDays int) (*model.CustomerDetail, error) {
	if userID != knownCustomerID {
		return nil, repository.ErrCustomerNotFound
	}
	return &model.CustomerDetail{
		Customer:     model.CustomerProfile{ID: userID, Name: "Ada Swan"},
		Transactions: []model.CustomerTransaction{},
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cs := cache.NewMemoryStore()
	t.Cleanup(func() { cs.Close() })

	gw := service.NewGateway(fixedStore{}, 5*time.Second)
	reports := service.NewReportService(cs, gw, "demo", time.Minute, 0)

	return router.New(router.Config{
		ReportHandler:      handler.NewReportHandler(reports),
		AdminKeyMiddleware: middleware.NewAdminKeyMiddleware(""),
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Cache   *struct {
		Cached     bool   `json:"cached"`
		TTLSeconds *int64 `json:"ttl_seconds"`
		ElapsedMS  int64  `json:"elapsed_ms"`
	} `json:"cache"`
}

func doGet(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestRetailReportCachedEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rec, env := doGet(t, h, "/api/retail-report-cached?since_days=30&limit=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.True(t, env.Success)
	require.NotNil(t, env.Cache)
	assert.False(t, env.Cache.Cached)
	// A fresh computation reports the TTL the entry was stored with.
	require.NotNil(t, env.Cache.TTLSeconds)
	assert.Equal(t, int64(60), *env.Cache.TTLSeconds)

	var report model.RetailReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 3, report.Summary.TotalActiveShoppers)

	// Second request hits the cache and carries a TTL.
	rec, env = doGet(t, h, "/api/retail-report-cached?since_days=30&limit=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.NotNil(t, env.Cache)
	assert.True(t, env.Cache.Cached)
	require.NotNil(t, env.Cache.TTLSeconds)
	assert.Greater(t, *env.Cache.TTLSeconds, int64(0))
}

func TestRetailReportUncachedEndpoint(t *testing.T) {
	h := newTestRouter(t)

	for i := 0; i < 2; i++ {
		rec, env := doGet(t, h, "/api/retail-report")
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, env.Cache)
		assert.False(t, env.Cache.Cached)
	}
}

func TestMalformedQueryParamsFallBackToDefaults(t *testing.T) {
	h := newTestRouter(t)

	rec, env := doGet(t, h, "/api/popular-items-cached?since_days=banana&limit=-5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestActiveShoppersEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rec, env := doGet(t, h, "/api/active-shoppers-cached")
	assert.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Count    int                   `json:"count"`
		Shoppers []model.ActiveShopper `json:"shoppers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 1, payload.Count)
	assert.Equal(t, "Ada Swan", payload.Shoppers[0].Name)
}

func TestCustomerDetailEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rec, env := doGet(t, h, "/api/customers/"+knownCustomerID)
	assert.Equal(t, http.StatusOK, rec.Code)

	var detail model.CustomerDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "Ada Swan", detail.Customer.Name)
}

func TestCustomerDetailNotFound(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/customers/9e107d9d-0000-4000-8000-000000000000", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerDetailInvalidID(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/customers/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
