package service

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"retail-report-api/internal/cache"
	"retail-report-api/internal/metrics"
)

// reportNamespaces are the namespaces derived from transaction data.
// A data mutation invalidates all of them.
var reportNamespaces = []string{nsReport, nsShoppers, nsPopular, nsCustomer}

// Invalidator deletes cached report entries by namespace prefix. All
// deletion goes through cursor-based prefix scans so a large keyspace
// never blocks the cache backend.
type Invalidator struct {
	store  cache.Store
	prefix string
}

// NewInvalidator creates an invalidator for the given key prefix.
func NewInvalidator(store cache.Store, prefix string) *Invalidator {
	return &Invalidator{store: store, prefix: prefix}
}

// InvalidateNamespace removes every cached entry in one namespace and
// returns the number of keys deleted.
func (i *Invalidator) InvalidateNamespace(ctx context.Context, namespace string) (int, error) {
	deleted, err := i.store.DeletePrefix(ctx, cache.Key(i.prefix, namespace)+cache.Delimiter)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate namespace %s: %w", namespace, err)
	}
	if deleted > 0 {
		metrics.CacheKeysInvalidated.Add(float64(deleted))
		log.Printf("[Invalidator] Removed %d keys from namespace %s", deleted, namespace)
	}
	return deleted, nil
}

// InvalidateReports removes every report-derived entry across all
// namespaces. Namespaces are scanned concurrently; the first failure
// cancels the rest.
func (i *Invalidator) InvalidateReports(ctx context.Context) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	counts := make([]int, len(reportNamespaces))

	for idx, ns := range reportNamespaces {
		idx, ns := idx, ns
		g.Go(func() error {
			n, err := i.InvalidateNamespace(ctx, ns)
			counts[idx] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// InvalidateCustomer removes all cached windows for one customer.
func (i *Invalidator) InvalidateCustomer(ctx context.Context, userID string) (int, error) {
	deleted, err := i.store.DeletePrefix(ctx, cache.Key(i.prefix, nsCustomer, userID)+cache.Delimiter)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate customer %s: %w", userID, err)
	}
	if deleted > 0 {
		metrics.CacheKeysInvalidated.Add(float64(deleted))
	}
	return deleted, nil
}

// InvalidateAll removes everything under the service prefix, including
// entries written by older key layouts.
func (i *Invalidator) InvalidateAll(ctx context.Context) (int, error) {
	deleted, err := i.store.DeletePrefix(ctx, i.prefix+cache.Delimiter)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate prefix %s: %w", i.prefix, err)
	}
	if deleted > 0 {
		metrics.CacheKeysInvalidated.Add(float64(deleted))
		log.Printf("[Invalidator] Flushed %d keys under prefix %s", deleted, i.prefix)
	}
	return deleted, nil
}
