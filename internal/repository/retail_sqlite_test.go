package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-report-api/internal/model"
)

const (
	adaID = "7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01"
	benID = "a1d2c3b4-1111-4a4b-9e6f-2f1f0a9d3c02"
)

func newTestStore(t *testing.T) *SQLiteRetailStore {
	t.Helper()
	store, err := NewSQLiteRetailStore(filepath.Join(t.TempDir(), "retail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ts(daysAgo int) *time.Time {
	t := time.Now().UTC().AddDate(0, 0, -daysAgo)
	return &t
}

func seedStore(t *testing.T, store *SQLiteRetailStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.InsertCustomers(ctx, []model.Customer{
		{ID: adaID, FirstName: "Ada", LastName: "Swan", Email: "ada@swan.dev"},
		{ID: benID, FirstName: "Ben", LastName: "Ode", Email: "ben@ode.dev"},
	})
	require.NoError(t, err)

	_, err = store.InsertTransactions(ctx, []model.Transaction{
		{UserID: adaID, Quantity: 2, UnitPrice: 10, TotalPrice: 20, CategoryL1: "Grocery", CategoryL2: "Snacks", CategoryL3: "Chips", Timestamp: ts(1)},
		{UserID: adaID, Quantity: 1, UnitPrice: 50, TotalPrice: 50, CategoryL1: "Electronics", CategoryL2: "Audio", Timestamp: ts(2)},
		// Outside a 30-day window.
		{UserID: benID, Quantity: 3, UnitPrice: 5, TotalPrice: 15, CategoryL1: "Grocery", CategoryL2: "Snacks", CategoryL3: "Chips", Timestamp: ts(90)},
	})
	require.NoError(t, err)
}

func TestSQLiteRetailReport(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	report, err := store.RetailReport(ctx, 30, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.TotalActiveShoppers)
	assert.InDelta(t, 70.0, report.Summary.TotalCartValue, 0.001)
	require.Len(t, report.TopClients, 1)
	assert.Equal(t, "Ada Swan", report.TopClients[0].Name)
	assert.InDelta(t, 70.0, report.TopClients[0].TotalSpent, 0.001)
	assert.Equal(t, 2, report.TopClients[0].TotalPurchases)

	require.Len(t, report.ShoppingCarts, 1)
	cart := report.ShoppingCarts[0]
	assert.Equal(t, "Ada Swan", cart.ClientName)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.ItemsCount)
}

func TestSQLiteRetailReportAllTime(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	report, err := store.RetailReport(context.Background(), 0, 10)
	require.NoError(t, err)

	// sinceDays <= 0 includes the 90-day-old transaction.
	assert.Equal(t, 2, report.Summary.TotalActiveShoppers)
	assert.Len(t, report.TopClients, 2)
}

func TestSQLiteActiveShoppers(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	shoppers, err := store.ActiveShoppers(ctx, 30, 0)
	require.NoError(t, err)
	require.Len(t, shoppers, 1)
	assert.Equal(t, adaID, shoppers[0].UserID)
	assert.Equal(t, 3, shoppers[0].CartItemsCount)
	require.NotNil(t, shoppers[0].LastActive)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -1), *shoppers[0].LastActive, time.Minute)

	all, err := store.ActiveShoppers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := store.ActiveShoppers(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	// Ordered by cart value, Ada first.
	assert.Equal(t, adaID, limited[0].UserID)
}

func TestSQLitePopularItems(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	items, err := store.PopularItems(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Ordered by purchase count; name is the deepest non-empty category.
	assert.Equal(t, "Chips", items[0].Name)
	assert.Equal(t, "Snacks", items[0].Category)
	assert.Equal(t, 5, items[0].PurchaseCount)
	assert.Equal(t, "Audio", items[1].Name)
}

func TestSQLiteCustomerDetail(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	detail, err := store.CustomerDetail(ctx, adaID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ada Swan", detail.Customer.Name)
	assert.Equal(t, "ada@swan.dev", detail.Customer.Email)
	require.Len(t, detail.Transactions, 2)
	// Newest first.
	assert.Equal(t, "Chips", detail.Transactions[0].Item)

	windowed, err := store.CustomerDetail(ctx, benID, 30)
	require.NoError(t, err)
	assert.Empty(t, windowed.Transactions)
}

func TestSQLiteCustomerNotFound(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)

	_, err := store.CustomerDetail(context.Background(), "9e107d9d-2222-4333-8444-555555555555", 0)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestSQLiteInsertCustomersIgnoresDuplicates(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	// One known id, one new. Only the new row counts as inserted.
	inserted, err := store.InsertCustomers(ctx, []model.Customer{
		{ID: adaID, FirstName: "Ada", LastName: "Swan", Email: "ada@swan.dev"},
		{ID: "9f1e2d3c-0000-0000-0000-00000000000a", FirstName: "Cleo", LastName: "Marsh", Email: "cleo@marsh.dev"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	customers, _, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), customers)
}

func TestSQLiteWipe(t *testing.T) {
	store := newTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	require.NoError(t, store.Wipe(ctx))

	customers, transactions, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, customers)
	assert.Zero(t, transactions)
}

func TestSQLiteDefaultTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCustomers(ctx, []model.Customer{
		{ID: adaID, FirstName: "Ada", LastName: "Swan", Email: "ada@swan.dev"},
	})
	require.NoError(t, err)

	// Nil timestamp defaults to now, landing inside any recent window.
	_, err = store.InsertTransactions(ctx, []model.Transaction{
		{UserID: adaID, Quantity: 1, UnitPrice: 2, TotalPrice: 2, CategoryL1: "Grocery"},
	})
	require.NoError(t, err)

	shoppers, err := store.ActiveShoppers(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, shoppers, 1)
}

func TestJoinName(t *testing.T) {
	assert.Equal(t, "Ada Swan", joinName("Ada", "Swan"))
	assert.Equal(t, "Ada", joinName("Ada", ""))
	assert.Equal(t, "Swan", joinName("", "Swan"))
	assert.Equal(t, "", joinName("", ""))
}
