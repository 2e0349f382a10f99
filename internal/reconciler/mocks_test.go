package reconciler

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/scenario"
	"github.com/textmock/textmock-server/internal/service"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
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

func (m *MockLedgerService) AuditBalance(ctx context.Context, ident identity.Identity) (*service.AuditReport, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuditReport), args.Error(1)
}
