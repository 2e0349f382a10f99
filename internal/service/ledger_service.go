package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/textmock/textmock-server/internal/config"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/shared"
	"github.com/textmock/textmock-server/internal/platform/messaging/producers"
	"github.com/textmock/textmock-server/internal/platform/metrics"
)

// SignupBonusReference marks the bonus entry written when an account is provisioned
const SignupBonusReference = "SIGNUP_BONUS"

// LedgerServiceImpl implements the LedgerService interface. Serialization of
// the read-check-write cycle relies on the repository's conditional update:
// the balance observed by the check is the one the decrement is applied to,
// or the whole cycle is retried.
type LedgerServiceImpl struct {
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	anomalyRepo anomaly.Repository
	publisher   producers.MessagePublisher
	cfg         config.LedgerConfig
	logger      *slog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	logger *slog.Logger,
	cfg config.LedgerConfig,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	anomalyRepo anomaly.Repository,
	publisher producers.MessagePublisher,
) LedgerService {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		anomalyRepo: anomalyRepo,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// GetBalance returns the authoritative balance, provisioning a default
// account with the sign-up bonus on first touch. The identity's balance hint
// is never consulted.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, ident identity.Identity) (int64, error) {
	acc, err := s.ensureAccount(ctx, ident)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Credit increases the balance and appends a positive audit entry
func (s *LedgerServiceImpl) Credit(ctx context.Context, accountID uuid.UUID, amount int64, kind ledger.Kind, referenceID string) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}

	newBalance, err := s.applyDelta(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}

	s.appendEntry(ctx, ledger.NewEntry(accountID, kind, amount, referenceID))
	metrics.TokensCredited.Add(float64(amount))

	s.logger.Info("Credited account",
		"account_id", accountID.String(),
		"kind", string(kind),
		"amount", amount,
		"new_balance", newBalance,
	)
	return newBalance, nil
}

// Debit decreases the balance after checking sufficiency against the same
// observed balance, and appends a negative audit entry. Zero or negative
// amounts and insufficient balances cause no side effects.
func (s *LedgerServiceImpl) Debit(ctx context.Context, accountID uuid.UUID, amount int64, kind ledger.Kind, referenceID string) (int64, error) {
	if amount <= 0 {
		return 0, account.ErrInvalidAmount
	}

	newBalance, err := s.applyDelta(ctx, accountID, -amount)
	if err != nil {
		return 0, err
	}

	s.appendEntry(ctx, ledger.NewEntry(accountID, kind, -amount, referenceID))

	s.logger.Info("Debited account",
		"account_id", accountID.String(),
		"kind", string(kind),
		"amount", amount,
		"new_balance", newBalance,
	)
	return newBalance, nil
}

// BuyTokens simulates a purchase. No payment gateway is involved; the entry
// carries a synthetic payment reference.
func (s *LedgerServiceImpl) BuyTokens(ctx context.Context, ident identity.Identity, amount int64) (int64, error) {
	acc, err := s.ensureAccount(ctx, ident)
	if err != nil {
		return 0, err
	}

	reference := "MOCK_PAYMENT_" + uuid.NewString()
	return s.Credit(ctx, acc.ID, amount, ledger.KindPurchase, reference)
}

// GetTransactions retrieves paginated audit entries for the caller
func (s *LedgerServiceImpl) GetTransactions(ctx context.Context, ident identity.Identity, page, perPage int) ([]*ledger.Entry, int64, error) {
	acc, err := s.ensureAccount(ctx, ident)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByAccountID(ctx, acc.ID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByAccountID(ctx, acc.ID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// AuditBalance compares the authoritative balance with the sum of audit
// entries. A mismatch means an anomaly is still pending reconciliation.
func (s *LedgerServiceImpl) AuditBalance(ctx context.Context, ident identity.Identity) (*AuditReport, error) {
	acc, err := s.ensureAccount(ctx, ident)
	if err != nil {
		return nil, err
	}

	sum, err := s.ledgerRepo.SumByAccountID(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	return &AuditReport{
		AccountID:  acc.ID,
		Balance:    acc.Balance,
		EntrySum:   sum,
		Consistent: acc.Balance == sum,
	}, nil
}

// ensureAccount resolves the caller's account, provisioning it atomically on
// first touch. Under concurrent first requests only one caller observes the
// insert; the rest re-read.
func (s *LedgerServiceImpl) ensureAccount(ctx context.Context, ident identity.Identity) (*account.Account, error) {
	if ident.IsAnonymous() {
		return nil, identity.ErrUnauthorized
	}

	acc, err := s.accountRepo.GetByID(ctx, ident.AccountID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, account.ErrAccountNotFound{}) {
		return nil, err
	}

	displayName := ident.DisplayName
	if displayName == "" {
		displayName = "user"
	}

	acc, err = account.NewAccount(ident.AccountID, displayName, s.cfg.SignupBonus)
	if err != nil {
		return nil, err
	}

	created, err := s.accountRepo.CreateIfAbsent(ctx, acc)
	if err != nil {
		return nil, err
	}

	if created {
		s.logger.Info("Provisioned account",
			"account_id", acc.ID.String(),
			"signup_bonus", s.cfg.SignupBonus,
		)
		if s.cfg.SignupBonus > 0 {
			s.appendEntry(ctx, ledger.NewEntry(acc.ID, ledger.KindBonus, s.cfg.SignupBonus, SignupBonusReference))
			metrics.TokensCredited.Add(float64(s.cfg.SignupBonus))
		}
		return acc, nil
	}

	// Lost the provisioning race; the winner's row is authoritative.
	return s.accountRepo.GetByID(ctx, ident.AccountID)
}

// applyDelta runs the serialized read-check-write cycle. The sufficiency
// check and the conditional update are evaluated against the same observed
// version, so two concurrent debits cannot both pass the check and over-draw
// the account.
func (s *LedgerServiceImpl) applyDelta(ctx context.Context, accountID uuid.UUID, delta int64) (int64, error) {
	for attempt := 0; attempt < s.cfg.MaxUpdateRetries; attempt++ {
		acc, err := s.accountRepo.GetByID(ctx, accountID)
		if err != nil {
			return 0, err
		}

		if delta < 0 && acc.Balance < -delta {
			return 0, account.ErrInsufficientFunds{Required: -delta, Available: acc.Balance}
		}

		err = s.accountRepo.UpdateBalance(ctx, accountID, delta, acc.Version)
		if err == nil {
			return acc.Balance + delta, nil
		}
		if errors.Is(err, account.ErrConcurrentModification{}) {
			s.logger.Debug("Balance update conflicted, retrying",
				"account_id", accountID.String(),
				"attempt", attempt+1,
			)
			continue
		}
		return 0, err
	}

	return 0, fmt.Errorf("balance update for account %s did not converge after %d attempts: %w",
		accountID, s.cfg.MaxUpdateRetries, account.ErrConcurrentModification{AccountID: accountID})
}

// appendEntry writes the audit entry for an applied balance change. On
// failure the balance stays authoritative and a MISSING_ENTRY anomaly is
// recorded so the reconciler can backfill the audit log.
func (s *LedgerServiceImpl) appendEntry(ctx context.Context, entry *ledger.Entry) {
	err := s.ledgerRepo.Create(ctx, entry)
	if err == nil {
		return
	}
	s.logger.Error("Failed to append ledger entry, recording anomaly",
		"entry_id", entry.EntryID.String(),
		"account_id", entry.AccountID.String(),
		"amount", entry.Amount,
		"error", err,
	)

	a, err := anomaly.NewMissingEntry(entry)
	if err != nil {
		s.logger.Error("Failed to build missing-entry anomaly",
			"entry_id", entry.EntryID.String(),
			"account_id", entry.AccountID.String(),
			"error", err,
		)
		return
	}

	if err := s.anomalyRepo.Create(ctx, a); err != nil {
		// Last resort: the structured log is the reconciliation record.
		s.logger.Error("Failed to record missing-entry anomaly",
			"entry_id", entry.EntryID.String(),
			"account_id", entry.AccountID.String(),
			"amount", entry.Amount,
			"error", err,
		)
		return
	}

	s.notifyAnomaly(ctx, a)
}

// notifyAnomaly publishes a best-effort event for the reconciler. Publish
// failures are tolerated; the poller picks up pending anomalies regardless.
func (s *LedgerServiceImpl) notifyAnomaly(ctx context.Context, a *anomaly.Anomaly) {
	if s.publisher == nil {
		return
	}

	event := shared.AnomalyEvent{
		AnomalyID:  a.ID,
		Kind:       string(a.Kind),
		AccountID:  a.AccountID,
		ScenarioID: a.ScenarioID,
		Cost:       a.Cost,
		Timestamp:  a.CreatedAt,
	}

	if err := s.publisher.Publish(ctx, a.AccountID.String(), event); err != nil {
		s.logger.Warn("Failed to publish anomaly event, poller will pick it up",
			"anomaly_id", a.ID,
			"error", err,
		)
	}
}
