package repository

import (
	"context"
	"errors"

	"retail-report-api/internal/model"
)

// ErrCustomerNotFound is returned when a customer id has no matching record.
var ErrCustomerNotFound = errors.New("customer not found")

// RetailStore defines the aggregation queries and data-load operations over
// the relational store. A sinceDays <= 0 means "all time" for every query;
// callers normalize before reaching the store.
type RetailStore interface {
	// RetailReport computes the aggregate report: summary, top clients by
	// spend, and a cart breakdown per top client.
	RetailReport(ctx context.Context, sinceDays, limit int) (*model.RetailReport, error)

	// ActiveShoppers lists shoppers with at least one transaction in the
	// window, ordered by cart value. limit <= 0 means unbounded.
	ActiveShoppers(ctx context.Context, sinceDays, limit int) ([]model.ActiveShopper, error)

	// PopularItems lists the most purchased items in the window, deriving
	// item name and category from the deepest non-empty category level.
	PopularItems(ctx context.Context, sinceDays, limit int) ([]model.PopularItem, error)

	// CustomerDetail returns one customer's profile and transactions.
	// Returns ErrCustomerNotFound when the id has no record.
	CustomerDetail(ctx context.Context, userID string, sinceDays int) (*model.CustomerDetail, error)

	// InsertCustomers batch-inserts customers, ignoring duplicate ids.
	InsertCustomers(ctx context.Context, customers []model.Customer) (int, error)

	// InsertTransactions batch-inserts transactions.
	InsertTransactions(ctx context.Context, txs []model.Transaction) (int, error)

	// Counts returns the current customer and transaction row counts.
	Counts(ctx context.Context) (customers, transactions int64, err error)

	// Wipe removes all customers and transactions.
	Wipe(ctx context.Context) error

	// Stats returns statistics about the retail database.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the store connection.
	Close() error
}
