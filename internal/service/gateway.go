package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"retail-report-api/internal/metrics"
	"retail-report-api/internal/model"
	"retail-report-api/internal/repository"
)

// ErrSourceUnavailable indicates the underlying data source failed or
// timed out. It is never written to the cache.
var ErrSourceUnavailable = errors.New("data source unavailable")

// Gateway wraps the retail store with a per-call timeout and a uniform
// error surface. Store failures other than not-found collapse into
// ErrSourceUnavailable so callers can map them to a single status.
type Gateway struct {
	store   repository.RetailStore
	timeout time.Duration
}

// NewGateway creates a gateway around store. timeout bounds each query;
// zero disables the bound.
func NewGateway(store repository.RetailStore, timeout time.Duration) *Gateway {
	return &Gateway{store: store, timeout: timeout}
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrCustomerNotFound) {
		return err
	}
	metrics.SourceErrors.WithLabelValues(op).Inc()
	log.Printf("[Gateway] %s failed: %v", op, err)
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, op, err)
}

// RetailReport computes the aggregate retail report.
func (g *Gateway) RetailReport(ctx context.Context, sinceDays, limit int) (*model.RetailReport, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	report, err := g.store.RetailReport(ctx, sinceDays, limit)
	return report, g.wrap("retail_report", err)
}

// ActiveShoppers lists shoppers active in the window.
func (g *Gateway) ActiveShoppers(ctx context.Context, sinceDays, limit int) ([]model.ActiveShopper, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	shoppers, err := g.store.ActiveShoppers(ctx, sinceDays, limit)
	return shoppers, g.wrap("active_shoppers", err)
}

// PopularItems lists the most purchased items in the window.
func (g *Gateway) PopularItems(ctx context.Context, sinceDays, limit int) ([]model.PopularItem, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	items, err := g.store.PopularItems(ctx, sinceDays, limit)
	return items, g.wrap("popular_items", err)
}

// CustomerDetail returns one customer's profile and transaction history.
// Returns repository.ErrCustomerNotFound when the id does not exist.
func (g *Gateway) CustomerDetail(ctx context.Context, userID string, sinceDays int) (*model.CustomerDetail, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	detail, err := g.store.CustomerDetail(ctx, userID, sinceDays)
	return detail, g.wrap("customer_detail", err)
}
