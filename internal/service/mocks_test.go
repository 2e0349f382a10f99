package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/scenario"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateIfAbsent(ctx context.Context, acc *account.Account) (bool, error) {
	args := m.Called(ctx, acc)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	args := m.Called(ctx, id, delta, version)
	return args.Error(0)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SumByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) GetByReference(ctx context.Context, accountID uuid.UUID, kind ledger.Kind, referenceID string) (*ledger.Entry, error) {
	args := m.Called(ctx, accountID, kind, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockAnomalyRepository struct {
	mock.Mock
}

func (m *MockAnomalyRepository) Create(ctx context.Context, a *anomaly.Anomaly) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAnomalyRepository) GetByID(ctx context.Context, id int64) (*anomaly.Anomaly, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anomaly.Anomaly), args.Error(1)
}

func (m *MockAnomalyRepository) GetPending(ctx context.Context, limit int) ([]*anomaly.Anomaly, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*anomaly.Anomaly), args.Error(1)
}

func (m *MockAnomalyRepository) Claim(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnomalyRepository) UpdateStatus(ctx context.Context, id int64, status anomaly.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAnomalyRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockScenarioRepository struct {
	mock.Mock
}

func (m *MockScenarioRepository) Create(ctx context.Context, s *scenario.Scenario) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockScenarioRepository) Update(ctx context.Context, s *scenario.Scenario) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockScenarioRepository) GetByID(ctx context.Context, id uuid.UUID) (*scenario.Scenario, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scenario.Scenario), args.Error(1)
}

func (m *MockScenarioRepository) GetByAuthorID(ctx context.Context, authorID uuid.UUID) ([]*scenario.Scenario, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*scenario.Scenario), args.Error(1)
}

func (m *MockScenarioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, ident identity.Identity) (int64, error) {
	args := m.Called(ctx, ident)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, accountID uuid.UUID, amount int64, kind ledger.Kind, referenceID string) (int64, error) {
	args := m.Called(ctx, accountID, amount, kind, referenceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Debit(ctx context.Context, accountID uuid.UUID, amount int64, kind ledger.Kind, referenceID string) (int64, error) {
	args := m.Called(ctx, accountID, amount, kind, referenceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) BuyTokens(ctx context.Context, ident identity.Identity, amount int64) (int64, error) {
	args := m.Called(ctx, ident, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) GetTransactions(ctx context.Context, ident identity.Identity, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, ident, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) AuditBalance(ctx context.Context, ident identity.Identity) (*AuditReport, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AuditReport), args.Error(1)
}

// fakeAccountRepo is an in-memory account store with real conditional-update
// semantics, used for the concurrency properties that a testify mock cannot
// express.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*account.Account)}
}

func (r *fakeAccountRepo) CreateIfAbsent(_ context.Context, acc *account.Account) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acc.ID]; ok {
		return false, nil
	}
	cp := *acc
	r.accounts[acc.ID] = &cp
	return true, nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	cp := *acc
	return &cp, nil
}

func (r *fakeAccountRepo) UpdateBalance(_ context.Context, id uuid.UUID, delta int64, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok || acc.Version != version || acc.Balance+delta < 0 {
		return account.ErrConcurrentModification{AccountID: id}
	}
	acc.Balance += delta
	acc.Version++
	return nil
}

// fakeLedgerRepo is an in-memory append-only audit log
type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []*ledger.Entry
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{}
}

func (r *fakeLedgerRepo) Create(_ context.Context, entry *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeLedgerRepo) GetByEntryID(_ context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.EntryID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ledger.ErrEntryNotFound{EntryID: entryID}
}

func (r *fakeLedgerRepo) GetByAccountID(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*ledger.Entry
	for _, e := range r.entries {
		if e.AccountID == accountID {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeLedgerRepo) CountByAccountID(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.entries {
		if e.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (r *fakeLedgerRepo) SumByAccountID(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.AccountID == accountID {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) GetByReference(_ context.Context, accountID uuid.UUID, kind ledger.Kind, referenceID string) (*ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.AccountID == accountID && e.Kind == kind && e.ReferenceID == referenceID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

// fakeAnomalyRepo is an in-memory anomaly store
type fakeAnomalyRepo struct {
	mu        sync.Mutex
	nextID    int64
	anomalies map[int64]*anomaly.Anomaly
}

func newFakeAnomalyRepo() *fakeAnomalyRepo {
	return &fakeAnomalyRepo{nextID: 1, anomalies: make(map[int64]*anomaly.Anomaly)}
}

func (r *fakeAnomalyRepo) Create(_ context.Context, a *anomaly.Anomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID
	r.nextID++
	cp := *a
	r.anomalies[cp.ID] = &cp
	return nil
}

func (r *fakeAnomalyRepo) GetByID(_ context.Context, id int64) (*anomaly.Anomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.anomalies[id]
	if !ok {
		return nil, anomaly.ErrAnomalyNotFound{ID: id}
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAnomalyRepo) GetPending(_ context.Context, limit int) ([]*anomaly.Anomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*anomaly.Anomaly
	for _, a := range r.anomalies {
		if a.Status == anomaly.StatusPending {
			cp := *a
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *fakeAnomalyRepo) Claim(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.anomalies[id]
	if !ok {
		return false, anomaly.ErrAnomalyNotFound{ID: id}
	}
	if a.Status != anomaly.StatusPending {
		return false, nil
	}
	a.Status = anomaly.StatusProcessing
	return true, nil
}

func (r *fakeAnomalyRepo) UpdateStatus(_ context.Context, id int64, status anomaly.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.anomalies[id]
	if !ok {
		return anomaly.ErrAnomalyNotFound{ID: id}
	}
	a.Status = status
	return nil
}

func (r *fakeAnomalyRepo) IncrementAttempts(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.anomalies[id]
	if !ok {
		return anomaly.ErrAnomalyNotFound{ID: id}
	}
	a.Attempts++
	return nil
}

func (r *fakeAnomalyRepo) all() []*anomaly.Anomaly {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*anomaly.Anomaly
	for _, a := range r.anomalies {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fakeScenarioRepo is an in-memory scenario store
type fakeScenarioRepo struct {
	mu        sync.Mutex
	scenarios map[uuid.UUID]*scenario.Scenario
}

func newFakeScenarioRepo() *fakeScenarioRepo {
	return &fakeScenarioRepo{scenarios: make(map[uuid.UUID]*scenario.Scenario)}
}

func (r *fakeScenarioRepo) Create(_ context.Context, s *scenario.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.scenarios[cp.ID] = &cp
	return nil
}

func (r *fakeScenarioRepo) Update(_ context.Context, s *scenario.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[s.ID]; !ok {
		return scenario.ErrScenarioNotFound{ScenarioID: s.ID}
	}
	cp := *s
	r.scenarios[cp.ID] = &cp
	return nil
}

func (r *fakeScenarioRepo) GetByID(_ context.Context, id uuid.UUID) (*scenario.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scenarios[id]
	if !ok {
		return nil, scenario.ErrScenarioNotFound{ScenarioID: id}
	}
	cp := *s
	return &cp, nil
}

func (r *fakeScenarioRepo) GetByAuthorID(_ context.Context, authorID uuid.UUID) ([]*scenario.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*scenario.Scenario
	for _, s := range r.scenarios {
		if s.AuthorID == authorID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeScenarioRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[id]; !ok {
		return scenario.ErrScenarioNotFound{ScenarioID: id}
	}
	delete(r.scenarios, id)
	return nil
}
