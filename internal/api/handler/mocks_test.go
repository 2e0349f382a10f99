package handler

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/textmock/textmock-server/internal/api/middleware"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/scenario"
	"github.com/textmock/textmock-server/internal/service"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// withIdentity injects a resolved identity the way the auth middleware would
func withIdentity(ident identity.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, ident)
		c.Next()
	}
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

type MockScenarioService struct {
	mock.Mock
}

func (m *MockScenarioService) SaveScenario(ctx context.Context, ident identity.Identity, input service.SaveScenarioInput) (*service.SaveScenarioResult, error) {
	args := m.Called(ctx, ident, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SaveScenarioResult), args.Error(1)
}

func (m *MockScenarioService) ListScenarios(ctx context.Context, ident identity.Identity) ([]*scenario.Scenario, error) {
	args := m.Called(ctx, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*scenario.Scenario), args.Error(1)
}

func (m *MockScenarioService) GetScenario(ctx context.Context, id uuid.UUID, ident identity.Identity) (*scenario.Scenario, error) {
	args := m.Called(ctx, id, ident)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scenario.Scenario), args.Error(1)
}
