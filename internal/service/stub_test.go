package service

import (
	"context"
	"sync"
	"sync/atomic"

	"retail-report-api/internal/model"
	"retail-report-api/internal/repository"
)

// stubRetailStore is an in-memory RetailStore for service tests. Query
// results are canned; call counts are tracked so tests can assert how
// many computations actually hit the store.
type stubRetailStore struct {
	mu sync.Mutex

	report   *model.RetailReport
	shoppers []model.ActiveShopper
	items    []model.PopularItem
	details  map[string]*model.CustomerDetail
	err      error

	reportCalls  int64
	shopperCalls int64
	itemCalls    int64
	detailCalls  int64

	customers    []model.Customer
	transactions []model.Transaction
	wiped        bool
}

func newStubStore() *stubRetailStore {
	return &stubRetailStore{
		report: &model.RetailReport{
			Summary: model.ReportSummary{TotalActiveShoppers: 2, TotalCartValue: 100, AverageCartValue: 50},
		},
		details: make(map[string]*model.CustomerDetail),
	}
}

func (s *stubRetailStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubRetailStore) RetailReport(ctx context.Context, sinceDays, limit int) (*model.RetailReport, error) {
	atomic.AddInt64(&s.reportCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubRetailStore) ActiveShoppers(ctx context.Context, sinceDays, limit int) ([]model.ActiveShopper, error) {
	atomic.AddInt64(&s.shopperCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.shoppers) {
		return s.shoppers[:limit], nil
	}
	return s.shoppers, nil
}

func (s *stubRetailStore) PopularItems(ctx context.Context, sinceDays, limit int) ([]model.PopularItem, error) {
	atomic.AddInt64(&s.itemCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *stubRetailStore) CustomerDetail(ctx context.Context, userID string, sinceDays int) (*model.CustomerDetail, error) {
	atomic.AddInt64(&s.detailCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.details[userID]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return d, nil
}

func (s *stubRetailStore) InsertCustomers(ctx context.Context, customers []model.Customer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.customers = append(s.customers, customers...)
	return len(customers), nil
}

func (s *stubRetailStore) InsertTransactions(ctx context.Context, txs []model.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.transactions = append(s.transactions, txs...)
	return len(txs), nil
}

func (s *stubRetailStore) Counts(ctx context.Context) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.customers)), int64(len(s.transactions)), nil
}

func (s *stubRetailStore) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wiped = true
	s.customers = nil
	s.transactions = nil
	return nil
}

func (s *stubRetailStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"backend": "stub"}, nil
}

func (s *stubRetailStore) Close() error { return nil }

var _ repository.RetailStore = (*stubRetailStore)(nil)
