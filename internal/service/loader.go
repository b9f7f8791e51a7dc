package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"retail-report-api/internal/model"
	"retail-report-api/internal/repository"
	"retail-report-api/pkg/uid"

	"github.com/google/uuid"
)

// insertBatchSize is the number of rows per insert transaction.
const insertBatchSize = 5000

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// timestampLayouts are tried in order when parsing transaction times.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Loader ingests retail sample data from CSV files into the store and
// invalidates the report cache afterwards. Input is sanitized rather
// than rejected: broken ids are regenerated, broken emails synthesized,
// duplicate customers and orphaned transactions dropped.
type Loader struct {
	store       repository.RetailStore
	invalidator *Invalidator
}

// NewLoader creates a loader over store. invalidator may be nil, in
// which case no cache invalidation runs after a load.
func NewLoader(store repository.RetailStore, invalidator *Invalidator) *Loader {
	return &Loader{store: store, invalidator: invalidator}
}

// LoadFromCSV loads customers and transactions from the given files.
// When reset is true all existing rows are wiped first. Cached report
// entries are invalidated before returning so no stale report survives
// a reload.
func (l *Loader) LoadFromCSV(ctx context.Context, customersPath, transactionsPath string, reset bool) (*model.LoadStats, error) {
	if reset {
		if err := l.store.Wipe(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset store: %w", err)
		}
	}

	customers, err := readCustomersCSV(customersPath)
	if err != nil {
		return nil, err
	}

	validIDs := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		validIDs[c.ID] = struct{}{}
	}

	transactions, err := readTransactionsCSV(transactionsPath, validIDs)
	if err != nil {
		return nil, err
	}

	stats := &model.LoadStats{}
	for i := 0; i < len(customers); i += insertBatchSize {
		end := min(i+insertBatchSize, len(customers))
		n, err := l.store.InsertCustomers(ctx, customers[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to insert customers: %w", err)
		}
		stats.CustomersLoaded += n
	}
	for i := 0; i < len(transactions); i += insertBatchSize {
		end := min(i+insertBatchSize, len(transactions))
		n, err := l.store.InsertTransactions(ctx, transactions[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to insert transactions: %w", err)
		}
		stats.TransactionsLoaded += n
	}

	if shoppers, err := l.store.ActiveShoppers(ctx, DefaultSinceDays, 0); err == nil {
		stats.ActiveShoppers = len(shoppers)
	}

	if l.invalidator != nil {
		if _, err := l.invalidator.InvalidateReports(ctx); err != nil {
			// Loaded data wins over a failed invalidation: report it, the
			// stale entries expire on their own TTL.
			log.Printf("[Loader] Cache invalidation after load failed: %v", err)
		}
	}

	log.Printf("[Loader] Loaded %d customers, %d transactions (%d active)",
		stats.CustomersLoaded, stats.TransactionsLoaded, stats.ActiveShoppers)
	return stats, nil
}

// readCustomersCSV reads and sanitizes the customers file. Rows with a
// duplicate id are dropped; blank or invalid ids get a fresh UUID.
func readCustomersCSV(path string) ([]model.Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("customers CSV not found: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read customers header: %w", err)
	}
	cols := columnMap(header)

	idCol := pickColumn(cols, "id", "user_id", "customer_id")
	fnCol := pickColumn(cols, "first_name", "firstname", "first", "person_first_name")
	lnCol := pickColumn(cols, "last_name", "lastname", "last", "surname", "person_last_name")
	emCol := pickColumn(cols, "email", "e-mail", "em_email")
	adCol := pickColumn(cols, "address", "street", "primary_address")
	ciCol := pickColumn(cols, "city")
	stCol := pickColumn(cols, "state", "province")
	zpCol := pickColumn(cols, "zip4", "zip", "zipcode", "postal")
	agCol := pickColumn(cols, "age", "aiq_age")

	seen := make(map[string]struct{})
	var customers []model.Customer

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read customers row: %w", err)
		}

		id := uuidOrNew(field(row, idCol))
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		first := strings.TrimSpace(field(row, fnCol))
		last := strings.TrimSpace(field(row, lnCol))

		customers = append(customers, model.Customer{
			ID:        id,
			FirstName: first,
			LastName:  last,
			Email:     safeEmail(first, last, id, field(row, emCol)),
			Address:   strings.TrimSpace(field(row, adCol)),
			City:      strings.TrimSpace(field(row, ciCol)),
			State:     strings.TrimSpace(field(row, stCol)),
			Zip4:      strings.ReplaceAll(strings.TrimSpace(field(row, zpCol)), ",", ""),
			Age:       cleanInt(field(row, agCol), 0),
		})
	}
	return customers, nil
}

// readTransactionsCSV reads and sanitizes the transactions file. Rows
// whose user id does not exist in validIDs are skipped.
func readTransactionsCSV(path string, validIDs map[string]struct{}) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transactions CSV not found: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions header: %w", err)
	}
	cols := columnMap(header)

	uidCol := pickColumn(cols, "user_id", "customer_id", "id")
	qtyCol := pickColumn(cols, "quantity", "qty")
	upCol := pickColumn(cols, "unit_price", "price")
	tpCol := pickColumn(cols, "total_price", "total")
	l1Col := pickColumn(cols, "category_l1", "cat_l1", "category1")
	l2Col := pickColumn(cols, "category_l2", "cat_l2", "category2")
	l3Col := pickColumn(cols, "category_l3", "cat_l3", "category3")
	tsCol := pickColumn(cols, "timestamp", "time", "ts", "date")

	var transactions []model.Transaction
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transactions row: %w", err)
		}

		userID := uuidOrNew(field(row, uidCol))
		if _, ok := validIDs[userID]; !ok {
			continue
		}

		qty := cleanInt(field(row, qtyCol), 1)
		unit := cleanFloat(field(row, upCol), 1.0)
		total := cleanFloat(field(row, tpCol), float64(qty)*unit)

		transactions = append(transactions, model.Transaction{
			UserID:     userID,
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: total,
			CategoryL1: strings.TrimSpace(field(row, l1Col)),
			CategoryL2: strings.TrimSpace(field(row, l2Col)),
			CategoryL3: strings.TrimSpace(field(row, l3Col)),
			Timestamp:  parseTimestamp(field(row, tsCol)),
		})
	}
	return transactions, nil
}

// columnMap maps lowercased header names to their column index.
func columnMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		m[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return m
}

// pickColumn returns the index of the first candidate present, or -1.
func pickColumn(cols map[string]int, candidates ...string) int {
	for _, c := range candidates {
		if idx, ok := cols[strings.ToLower(c)]; ok {
			return idx
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// uuidOrNew canonicalizes s as a UUID, generating a fresh one when it
// is blank or malformed.
func uuidOrNew(s string) string {
	if u, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
		return u.String()
	}
	return uid.New()
}

// safeEmail returns the given email if it looks valid, otherwise
// synthesizes a deterministic one from the name and id.
func safeEmail(first, last, id, given string) string {
	e := strings.TrimSpace(given)
	if e != "" && !strings.EqualFold(e, "empty") && emailRe.MatchString(e) {
		return e
	}
	left := strings.Trim(strings.ToLower(first)+"."+strings.ToLower(last), ".")
	if left == "" {
		left = "user"
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s.%s@example.com", left, short)
}

func cleanInt(s string, def int) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return def
}

func cleanFloat(s string, def float64) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

// parseTimestamp parses a transaction time, returning nil so the store
// can apply its own default when the value is blank or unparseable.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
