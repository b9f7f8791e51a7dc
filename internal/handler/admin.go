package handler

import (
	"encoding/json"
	"net/http"

	"retail-report-api/internal/cache"
	"retail-report-api/internal/repository"
	"retail-report-api/internal/service"
	"retail-report-api/pkg/apierror"
	"retail-report-api/pkg/response"
)

// AdminHandler handles data-loading and cache-administration requests.
type AdminHandler struct {
	loader      *service.Loader
	invalidator *service.Invalidator
	store       repository.RetailStore
	cacheStore  cache.Store

	defaultCustomersCSV    string
	defaultTransactionsCSV string
}

// NewAdminHandler creates a new admin handler. The CSV paths are the
// defaults used when a load request does not name its own files.
func NewAdminHandler(loader *service.Loader, invalidator *service.Invalidator, store repository.RetailStore, cacheStore cache.Store, customersCSV, transactionsCSV string) *AdminHandler {
	return &AdminHandler{
		loader:                 loader,
		invalidator:            invalidator,
		store:                  store,
		cacheStore:             cacheStore,
		defaultCustomersCSV:    customersCSV,
		defaultTransactionsCSV: transactionsCSV,
	}
}

type loadRequest struct {
	CustomersCSV    string `json:"customers_csv"`
	TransactionsCSV string `json:"transactions_csv"`
	Reset           *bool  `json:"reset"`
}

// LoadSampleData handles POST /api/redis/load-sample-data.
func (h *AdminHandler) LoadSampleData(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, apierror.BadRequest("invalid JSON"))
			return
		}
	}

	customersCSV := req.CustomersCSV
	if customersCSV == "" {
		customersCSV = h.defaultCustomersCSV
	}
	transactionsCSV := req.TransactionsCSV
	if transactionsCSV == "" {
		transactionsCSV = h.defaultTransactionsCSV
	}
	reset := true
	if req.Reset != nil {
		reset = *req.Reset
	}

	stats, err := h.loader.LoadFromCSV(r.Context(), customersCSV, transactionsCSV, reset)
	if err != nil {
		response.Error(w, apierror.InternalError(err.Error()))
		return
	}

	response.OK(w, stats)
}

// ClearData handles POST /api/clear-data. Rows are wiped before the
// cache so a repopulating request cannot observe deleted data through a
// surviving entry.
func (h *AdminHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Wipe(r.Context()); err != nil {
		response.Error(w, apierror.InternalError("failed to clear data"))
		return
	}

	deleted, err := h.invalidator.InvalidateAll(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("data cleared but cache invalidation failed"))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":       "cleared",
		"keys_removed": deleted,
	})
}

// InvalidateCache handles POST /api/cache/invalidate. An optional
// "namespace" query parameter restricts the flush to one namespace;
// without it every report-derived entry goes.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")

	var (
		deleted int
		err     error
	)
	if namespace != "" {
		deleted, err = h.invalidator.InvalidateNamespace(r.Context(), namespace)
	} else {
		deleted, err = h.invalidator.InvalidateReports(r.Context())
	}
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("cache unavailable"))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":       "invalidated",
		"namespace":    namespace,
		"keys_removed": deleted,
	})
}

// RedisStats handles GET /api/redis-stats.
func (h *AdminHandler) RedisStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cacheStore.Stats(r.Context())
	if err != nil {
		response.Error(w, apierror.ServiceUnavailable("cache unavailable"))
		return
	}

	dbStats, err := h.store.Stats(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to read database stats"))
		return
	}

	response.OK(w, map[string]interface{}{
		"cache":    stats,
		"database": dbStats,
	})
}
