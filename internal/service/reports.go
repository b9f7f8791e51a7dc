package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"retail-report-api/internal/cache"
	"retail-report-api/internal/metrics"
	"retail-report-api/internal/model"
)

// Cache key namespaces. Each namespace is independently invalidatable.
const (
	nsReport   = "report"
	nsShoppers = "active_shoppers"
	nsPopular  = "popular"
	nsCustomer = "customer"
)

// Meta describes how a result was produced.
type Meta struct {
	// Cached is true when the result was served from the cache.
	Cached bool

	// TTLSeconds is the lifetime of the cache entry: the remaining TTL on
	// a hit, the assigned TTL on a fresh computation, nil for results that
	// bypassed the cache or entries with no expiry.
	TTLSeconds *int64

	// ElapsedMS is the total time spent producing the result.
	ElapsedMS int64
}

// ReportService serves retail reports through a cache-aside layer with
// request coalescing. Cache failures degrade to direct computation and
// never fail a request; computation errors are never cached.
type ReportService struct {
	store       cache.Store
	flight      *cache.Flight
	gateway     *Gateway
	prefix      string
	reportTTL   time.Duration
	customerTTL time.Duration
}

// NewReportService creates a report service. reportTTL applies to the
// report, active-shopper and popular-item namespaces; customerTTL
// applies to customer detail, where zero means entries persist until
// invalidated.
func NewReportService(store cache.Store, gateway *Gateway, prefix string, reportTTL, customerTTL time.Duration) *ReportService {
	return &ReportService{
		store:       store,
		flight:      cache.NewFlight(),
		gateway:     gateway,
		prefix:      prefix,
		reportTTL:   reportTTL,
		customerTTL: customerTTL,
	}
}

// RetailReport returns the aggregate retail report. When useCache is
// false the cache layer is bypassed entirely.
func (s *ReportService) RetailReport(ctx context.Context, sinceDays, limit int, useCache bool) (*model.RetailReport, Meta, error) {
	sinceDays = NormalizeSince(sinceDays)
	limit = NormalizeLimit(limit)

	if !useCache {
		return direct(ctx, nsReport, func(ctx context.Context) (*model.RetailReport, error) {
			return s.gateway.RetailReport(ctx, sinceDays, limit)
		})
	}

	key := cache.Key(s.prefix, nsReport, "retail", sinceToken(sinceDays), limitToken(limit))
	return fetchCached(ctx, s, nsReport, key, s.reportTTL, func(ctx context.Context) (*model.RetailReport, error) {
		return s.gateway.RetailReport(ctx, sinceDays, limit)
	})
}

// ActiveShoppers returns shoppers active in the window.
func (s *ReportService) ActiveShoppers(ctx context.Context, sinceDays, limit int, useCache bool) ([]model.ActiveShopper, Meta, error) {
	sinceDays = NormalizeSince(sinceDays)
	limit = NormalizeShopperLimit(limit)

	if !useCache {
		return direct(ctx, nsShoppers, func(ctx context.Context) ([]model.ActiveShopper, error) {
			return s.gateway.ActiveShoppers(ctx, sinceDays, limit)
		})
	}

	key := cache.Key(s.prefix, nsShoppers, sinceToken(sinceDays), limitToken(limit))
	return fetchCached(ctx, s, nsShoppers, key, s.reportTTL, func(ctx context.Context) ([]model.ActiveShopper, error) {
		return s.gateway.ActiveShoppers(ctx, sinceDays, limit)
	})
}

// PopularItems returns the most purchased items in the window.
func (s *ReportService) PopularItems(ctx context.Context, sinceDays, limit int, useCache bool) ([]model.PopularItem, Meta, error) {
	sinceDays = NormalizeSince(sinceDays)
	limit = NormalizeLimit(limit)

	if !useCache {
		return direct(ctx, nsPopular, func(ctx context.Context) ([]model.PopularItem, error) {
			return s.gateway.PopularItems(ctx, sinceDays, limit)
		})
	}

	key := cache.Key(s.prefix, nsPopular, sinceToken(sinceDays), limitToken(limit))
	return fetchCached(ctx, s, nsPopular, key, s.reportTTL, func(ctx context.Context) ([]model.PopularItem, error) {
		return s.gateway.PopularItems(ctx, sinceDays, limit)
	})
}

// CustomerDetail returns one customer's profile and transaction history.
// Entries persist until invalidated rather than expiring, so a customer
// lookup is cheap until the underlying data changes.
func (s *ReportService) CustomerDetail(ctx context.Context, userID string, sinceDays int) (*model.CustomerDetail, Meta, error) {
	sinceDays = NormalizeSince(sinceDays)

	key := cache.Key(s.prefix, nsCustomer, userID, sinceToken(sinceDays))
	return fetchCached(ctx, s, nsCustomer, key, s.customerTTL, func(ctx context.Context) (*model.CustomerDetail, error) {
		return s.gateway.CustomerDetail(ctx, userID, sinceDays)
	})
}

// direct computes a result without touching the cache.
func direct[T any](ctx context.Context, namespace string, compute func(ctx context.Context) (T, error)) (T, Meta, error) {
	start := time.Now()
	val, err := compute(ctx)
	elapsed := time.Since(start)
	if err != nil {
		var zero T
		metrics.ReportDuration.WithLabelValues(namespace, "error").Observe(elapsed.Seconds())
		return zero, Meta{ElapsedMS: elapsed.Milliseconds()}, err
	}
	metrics.ReportDuration.WithLabelValues(namespace, "uncached").Observe(elapsed.Seconds())
	return val, Meta{ElapsedMS: elapsed.Milliseconds()}, nil
}

// fetchCached is the cache-aside path: serve a hit, otherwise coalesce
// concurrent misses for the same key into one computation, cache the
// result and fan it out. A cache read or write failure degrades to
// computation; the request only fails when the source does.
func fetchCached[T any](ctx context.Context, s *ReportService, namespace, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, Meta, error) {
	var zero T
	start := time.Now()

	val, ok, err := cache.GetJSON[T](ctx, s.store, key)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		// Cache is unreachable: compute directly, skip the write-back.
		metrics.CacheDegradations.Inc()
		log.Printf("[ReportService] Cache unavailable for %s, computing directly: %v", key, err)

		res, _, ferr := s.flight.Do(ctx, key, func(ctx context.Context) (any, error) {
			return compute(ctx)
		})
		elapsed := time.Since(start)
		if ferr != nil {
			metrics.ReportDuration.WithLabelValues(namespace, "error").Observe(elapsed.Seconds())
			return zero, Meta{ElapsedMS: elapsed.Milliseconds()}, ferr
		}
		metrics.ReportDuration.WithLabelValues(namespace, "degraded").Observe(elapsed.Seconds())
		return res.(T), Meta{ElapsedMS: elapsed.Milliseconds()}, nil
	}

	if ok {
		metrics.CacheHits.WithLabelValues(namespace).Inc()
		meta := Meta{Cached: true, ElapsedMS: time.Since(start).Milliseconds()}
		if d, hasTTL, terr := s.store.TTL(ctx, key); terr == nil && hasTTL {
			secs := int64(d.Seconds())
			meta.TTLSeconds = &secs
		}
		metrics.ReportDuration.WithLabelValues(namespace, "hit").Observe(time.Since(start).Seconds())
		return val, meta, nil
	}

	metrics.CacheMisses.WithLabelValues(namespace).Inc()

	res, shared, err := s.flight.Do(ctx, key, func(ctx context.Context) (any, error) {
		fresh, cerr := compute(ctx)
		if cerr != nil {
			return nil, cerr
		}
		if serr := cache.SetJSON(ctx, s.store, key, fresh, ttl); serr != nil {
			metrics.CacheDegradations.Inc()
			log.Printf("[ReportService] Failed to cache %s: %v", key, serr)
		}
		return fresh, nil
	})
	elapsed := time.Since(start)
	if err != nil {
		metrics.ReportDuration.WithLabelValues(namespace, "error").Observe(elapsed.Seconds())
		return zero, Meta{ElapsedMS: elapsed.Milliseconds()}, err
	}

	typed, ok := res.(T)
	if !ok {
		return zero, Meta{ElapsedMS: elapsed.Milliseconds()}, fmt.Errorf("unexpected result type %T for %s", res, key)
	}

	result := "miss"
	if shared {
		result = "coalesced"
	}
	metrics.ReportDuration.WithLabelValues(namespace, result).Observe(elapsed.Seconds())

	// A fresh result reports the TTL it was stored with, so callers see the
	// same shape on miss and hit. Persistent namespaces report none.
	meta := Meta{ElapsedMS: elapsed.Milliseconds()}
	if ttl > 0 {
		secs := int64(ttl.Seconds())
		meta.TTLSeconds = &secs
	}
	return typed, meta, nil
}
