package handler

import (
	"net/http"
	"runtime"
	"time"

	"retail-report-api/internal/cache"
	"retail-report-api/internal/repository"
	"retail-report-api/pkg/response"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// HealthHandler contains liveness, readiness and status handlers.
type HealthHandler struct {
	version    string
	store      repository.RetailStore
	cacheStore cache.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string, store repository.RetailStore, cacheStore cache.Store) *HealthHandler {
	return &HealthHandler{
		version:    version,
		store:      store,
		cacheStore: cacheStore,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Ready handles GET /api/v1/ready. Readiness requires the database; the
// cache is reported but never blocks, since requests degrade without it.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if _, _, err := h.store.Counts(r.Context()); err != nil {
		dbStatus = "unavailable"
	}

	cacheStatus := "ok"
	if _, err := h.cacheStore.Stats(r.Context()); err != nil {
		cacheStatus = "unavailable"
	}

	checks := []Check{
		{Name: "database", Status: dbStatus},
		{Name: "cache", Status: cacheStatus},
	}

	resp := ReadyResponse{
		Ready:     dbStatus == "ok",
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response.OK(w, resp)
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	Database string  `json:"database"`
	Cache    string  `json:"cache"`
	MemoryMB float64 `json:"memory_mb"`
}

// StatusResponse represents the unified status response for monitoring
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	PingMS        int64        `json:"ping_ms"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status - unified health check for monitoring
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()

	// Get memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	dbStatus := "ok"
	if _, _, err := h.store.Counts(r.Context()); err != nil {
		dbStatus = "unavailable"
	}
	cacheStatus := "ok"
	if _, err := h.cacheStore.Stats(r.Context()); err != nil {
		cacheStatus = "unavailable"
	}

	pingMS := time.Since(requestStart).Milliseconds()
	uptimeSeconds := int64(time.Since(StartTime).Seconds())

	resp := StatusResponse{
		Service:       "retail-report-api",
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: uptimeSeconds,
		PingMS:        pingMS,
		Checks: StatusChecks{
			Database: dbStatus,
			Cache:    cacheStatus,
			MemoryMB: float64(int(memoryMB*100)) / 100,
		},
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
