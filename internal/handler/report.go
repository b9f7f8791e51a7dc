package handler

import (
	"errors"
	"net/http"
	"strconv"

	"retail-report-api/internal/repository"
	"retail-report-api/internal/service"
	"retail-report-api/pkg/apierror"
	"retail-report-api/pkg/response"
	"retail-report-api/pkg/uid"

	"github.com/go-chi/chi/v5"
)

// ReportHandler handles report-related HTTP requests.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// queryInt reads an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// reportError maps service errors to API errors.
func reportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrCustomerNotFound):
		response.Error(w, apierror.NotFound("customer not found"))
	case errors.Is(err, service.ErrSourceUnavailable):
		response.Error(w, apierror.ServiceUnavailable("data source unavailable"))
	default:
		response.Error(w, err)
	}
}

func cacheMeta(meta service.Meta) response.CacheMeta {
	return response.CacheMeta{
		Cached:     meta.Cached,
		TTLSeconds: meta.TTLSeconds,
		ElapsedMS:  meta.ElapsedMS,
	}
}

// RetailReport handles GET /api/retail-report (uncached baseline).
func (h *ReportHandler) RetailReport(w http.ResponseWriter, r *http.Request) {
	h.retailReport(w, r, false)
}

// RetailReportCached handles GET /api/retail-report-cached.
func (h *ReportHandler) RetailReportCached(w http.ResponseWriter, r *http.Request) {
	h.retailReport(w, r, true)
}

func (h *ReportHandler) retailReport(w http.ResponseWriter, r *http.Request, useCache bool) {
	sinceDays := queryInt(r, "since_days", service.DefaultSinceDays)
	limit := queryInt(r, "limit", service.DefaultLimit)

	report, meta, err := h.reports.RetailReport(r.Context(), sinceDays, limit, useCache)
	if err != nil {
		reportError(w, err)
		return
	}
	response.Cached(w, report, cacheMeta(meta))
}

// ActiveShoppers handles GET /api/active-shoppers (uncached baseline).
func (h *ReportHandler) ActiveShoppers(w http.ResponseWriter, r *http.Request) {
	h.activeShoppers(w, r, false)
}

// ActiveShoppersCached handles GET /api/active-shoppers-cached.
func (h *ReportHandler) ActiveShoppersCached(w http.ResponseWriter, r *http.Request) {
	h.activeShoppers(w, r, true)
}

func (h *ReportHandler) activeShoppers(w http.ResponseWriter, r *http.Request, useCache bool) {
	sinceDays := queryInt(r, "since_days", service.DefaultSinceDays)
	limit := queryInt(r, "limit", 0)

	shoppers, meta, err := h.reports.ActiveShoppers(r.Context(), sinceDays, limit, useCache)
	if err != nil {
		reportError(w, err)
		return
	}
	response.Cached(w, map[string]interface{}{
		"count":    len(shoppers),
		"shoppers": shoppers,
	}, cacheMeta(meta))
}

// PopularItems handles GET /api/popular-items (uncached baseline).
func (h *ReportHandler) PopularItems(w http.ResponseWriter, r *http.Request) {
	h.popularItems(w, r, false)
}

// PopularItemsCached handles GET /api/popular-items-cached.
func (h *ReportHandler) PopularItemsCached(w http.ResponseWriter, r *http.Request) {
	h.popularItems(w, r, true)
}

func (h *ReportHandler) popularItems(w http.ResponseWriter, r *http.Request, useCache bool) {
	sinceDays := queryInt(r, "since_days", service.DefaultSinceDays)
	limit := queryInt(r, "limit", service.DefaultLimit)

	items, meta, err := h.reports.PopularItems(r.Context(), sinceDays, limit, useCache)
	if err != nil {
		reportError(w, err)
		return
	}
	response.Cached(w, map[string]interface{}{
		"count": len(items),
		"items": items,
	}, cacheMeta(meta))
}

// CustomerDetail handles GET /api/customers/{user_id}.
func (h *ReportHandler) CustomerDetail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if !uid.IsValid(userID) {
		response.Error(w, apierror.BadRequest("user_id must be a valid UUID"))
		return
	}
	sinceDays := queryInt(r, "since_days", 0)

	detail, meta, err := h.reports.CustomerDetail(r.Context(), userID, sinceDays)
	if err != nil {
		reportError(w, err)
		return
	}
	response.Cached(w, detail, cacheMeta(meta))
}
