package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-report-api/internal/cache"
	"retail-report-api/pkg/uid"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const customerHeader = "id,first_name,last_name,email,address,city,state,zip4,age\n"

func TestLoadFromCSV(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv", customerHeader+
		"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,Ada,Swan,ada@swan.dev,1 Main St,Springfield,IL,62704,34\n"+
		"a1d2c3b4-0000-4a4b-9e6f-2f1f0a9d3c02,Ben,Ode,,2 Oak Ave,Portland,OR,97201,41\n")
	transactions := writeCSV(t, dir, "transactions.csv",
		"user_id,quantity,unit_price,total_price,category_l1,category_l2,category_l3,timestamp\n"+
			"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,2,9.99,19.98,Grocery,Snacks,Chips,2026-08-01 12:30:00\n"+
			"a1d2c3b4-0000-4a4b-9e6f-2f1f0a9d3c02,1,120.00,120.00,Electronics,Audio,Headphones,\n")

	store := newStubStore()
	loader := NewLoader(store, nil)

	stats, err := loader.LoadFromCSV(context.Background(), customers, transactions, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CustomersLoaded)
	assert.Equal(t, 2, stats.TransactionsLoaded)
	assert.True(t, store.wiped)

	// A blank email is synthesized from the name and id.
	assert.Equal(t, "ben.ode.a1d2c3b4@example.com", store.customers[1].Email)
	assert.Equal(t, "ada@swan.dev", store.customers[0].Email)

	// Parsed timestamp survives; an empty one stays nil for the store default.
	require.NotNil(t, store.transactions[0].Timestamp)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC), store.transactions[0].Timestamp.UTC())
	assert.Nil(t, store.transactions[1].Timestamp)
}

func TestLoadRepairsInvalidIDs(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv", customerHeader+
		"not-a-uuid,Ada,Swan,ada@swan.dev,,,,62704,34\n")
	transactions := writeCSV(t, dir, "transactions.csv",
		"user_id,quantity,unit_price,total_price,category_l1,category_l2,category_l3,timestamp\n")

	store := newStubStore()
	loader := NewLoader(store, nil)

	stats, err := loader.LoadFromCSV(context.Background(), customers, transactions, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.CustomersLoaded)
	assert.True(t, uid.IsValid(store.customers[0].ID))
}

func TestLoadDropsDuplicatesAndOrphans(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv", customerHeader+
		"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,Ada,Swan,ada@swan.dev,,,,,34\n"+
		"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,Ada,Swan,ada@swan.dev,,,,,34\n")
	transactions := writeCSV(t, dir, "transactions.csv",
		"user_id,quantity,unit_price,total_price,category_l1,category_l2,category_l3,timestamp\n"+
			"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,1,5,5,Grocery,,,\n"+
			// Unknown customer id, dropped.
			"11111111-2222-4333-8444-555555555555,1,5,5,Grocery,,,\n")

	store := newStubStore()
	loader := NewLoader(store, nil)

	stats, err := loader.LoadFromCSV(context.Background(), customers, transactions, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CustomersLoaded)
	assert.Equal(t, 1, stats.TransactionsLoaded)
}

func TestLoadCoercesNumericFields(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv", customerHeader+
		"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,Ada,Swan,ada@swan.dev,,,,\"62,704\",not-a-number\n")
	transactions := writeCSV(t, dir, "transactions.csv",
		"user_id,quantity,unit_price,total_price,category_l1,category_l2,category_l3,timestamp\n"+
			"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,\"1,200\",2.5,,Grocery,,,\n")

	store := newStubStore()
	loader := NewLoader(store, nil)

	_, err := loader.LoadFromCSV(context.Background(), customers, transactions, false)
	require.NoError(t, err)

	assert.Equal(t, "62704", store.customers[0].Zip4)
	assert.Equal(t, 0, store.customers[0].Age)

	tx := store.transactions[0]
	assert.Equal(t, 1200, tx.Quantity)
	assert.Equal(t, 2.5, tx.UnitPrice)
	// Missing total derives from quantity * unit price.
	assert.Equal(t, 3000.0, tx.TotalPrice)
}

func TestLoadAlternateColumnNames(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv",
		"customer_id,firstname,surname,e-mail,street,city,province,zip,aiq_age\n"+
			"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,Ada,Swan,ada@swan.dev,1 Main St,Springfield,IL,62704,34\n")
	transactions := writeCSV(t, dir, "transactions.csv",
		"customer_id,qty,price,total,cat_l1,cat_l2,cat_l3,date\n"+
			"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,2,9.99,19.98,Grocery,Snacks,Chips,2026-08-01\n")

	store := newStubStore()
	loader := NewLoader(store, nil)

	stats, err := loader.LoadFromCSV(context.Background(), customers, transactions, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CustomersLoaded)
	assert.Equal(t, 1, stats.TransactionsLoaded)
	assert.Equal(t, "Ada", store.customers[0].FirstName)
	assert.Equal(t, "IL", store.customers[0].State)
	assert.Equal(t, 2, store.transactions[0].Quantity)
}

func TestLoadInvalidatesReportCache(t *testing.T) {
	dir := t.TempDir()
	customers := writeCSV(t, dir, "customers.csv", customerHeader+
		"7b4a1de2-8c11-4a4b-9e6f-2f1f0a9d3c01,Ada,Swan,ada@swan.dev,,,,,34\n")
	transactions := writeCSV(t, dir, "transactions.csv",
		"user_id,quantity,unit_price,total_price,category_l1,category_l2,category_l3,timestamp\n")

	cs := cache.NewMemoryStore()
	defer cs.Close()
	ctx := context.Background()
	require.NoError(t, cs.Set(ctx, "demo:report:retail:30:10", []byte(`{}`), time.Minute))

	store := newStubStore()
	loader := NewLoader(store, NewInvalidator(cs, "demo"))

	_, err := loader.LoadFromCSV(ctx, customers, transactions, true)
	require.NoError(t, err)

	// The stale report entry is gone before the load call returns.
	_, err = cs.Get(ctx, "demo:report:retail:30:10")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestLoadMissingFile(t *testing.T) {
	store := newStubStore()
	loader := NewLoader(store, nil)

	_, err := loader.LoadFromCSV(context.Background(), "/nonexistent/customers.csv", "/nonexistent/tx.csv", false)
	assert.Error(t, err)
}
