package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/textmock/textmock-server/internal/config"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/scenario"
	"github.com/textmock/textmock-server/internal/domain/shared"
	"github.com/textmock/textmock-server/internal/platform/messaging/producers"
	"github.com/textmock/textmock-server/internal/platform/metrics"
)

// ScenarioServiceImpl runs the scenario commit protocol. The write order is
// fixed: the scenario document first, the token debit second. A failure after
// the scenario write leaves reconciliation residue instead of rolling back,
// because the scenario store and the balance store share no transaction.
type ScenarioServiceImpl struct {
	scenarioRepo scenario.Repository
	anomalyRepo  anomaly.Repository
	ledgerSvc    LedgerService
	publisher    producers.MessagePublisher
	cfg          config.LedgerConfig
	logger       *slog.Logger
}

// NewScenarioService creates a new scenario service
func NewScenarioService(
	logger *slog.Logger,
	cfg config.LedgerConfig,
	scenarioRepo scenario.Repository,
	anomalyRepo anomaly.Repository,
	ledgerSvc LedgerService,
	publisher producers.MessagePublisher,
) ScenarioService {
	return &ScenarioServiceImpl{
		scenarioRepo: scenarioRepo,
		anomalyRepo:  anomalyRepo,
		ledgerSvc:    ledgerSvc,
		publisher:    publisher,
		cfg:          cfg,
		logger:       logger,
	}
}

// SaveScenario persists a create or edit and charges the save fee.
//
// Phase A (abortable): validate, check the balance, write the scenario.
// Any failure up to and including the scenario write aborts cleanly.
// Phase B (point of no return): debit the fee. A failure here records an
// UNPAID_SCENARIO anomaly and surfaces shared.ErrPartialCommit; the account
// is never charged for a scenario that was not saved, and never has a save
// silently given away.
func (s *ScenarioServiceImpl) SaveScenario(ctx context.Context, ident identity.Identity, input SaveScenarioInput) (*SaveScenarioResult, error) {
	if ident.IsAnonymous() {
		return nil, identity.ErrUnauthorized
	}

	state := shared.SaveStatePending
	defer func() {
		metrics.ScenarioSaves.WithLabelValues(string(state)).Inc()
	}()

	cost := s.cfg.SaveCost

	// Fail fast on an insufficient balance before touching the scenario
	// store. The authoritative check is the debit itself; this one only
	// avoids pointless writes.
	balance, err := s.ledgerSvc.GetBalance(ctx, ident)
	if err != nil {
		state = shared.SaveStateAborted
		return nil, err
	}
	if balance < cost {
		state = shared.SaveStateAborted
		return nil, account.ErrInsufficientFunds{Required: cost, Available: balance}
	}
	state = shared.SaveStateBalanceChecked

	sc, isCreate, err := s.writeScenario(ctx, ident, input)
	if err != nil {
		state = shared.SaveStateAborted
		return nil, err
	}
	state = shared.SaveStateScenarioWritten

	newBalance, err := s.ledgerSvc.Debit(ctx, ident.AccountID, cost, ledger.KindConsumption, sc.ID.String())
	if err != nil {
		if errors.Is(err, identity.ErrUnauthorized) {
			// Cannot happen past the anonymous check above, but never
			// misreport an auth failure as a partial commit.
			state = shared.SaveStateAborted
			return nil, err
		}
		state = shared.SaveStatePartiallyFailed
		return nil, s.recordPartialCommit(ctx, ident.AccountID, sc.ID, cost, isCreate, err)
	}
	state = shared.SaveStateDebited

	metrics.TokensDebited.Add(float64(cost))
	state = shared.SaveStateCommitted

	s.logger.Info("Scenario save committed",
		"scenario_id", sc.ID.String(),
		"account_id", ident.AccountID.String(),
		"created", isCreate,
		"cost", cost,
		"new_balance", newBalance,
	)

	return &SaveScenarioResult{
		Scenario:   sc,
		NewBalance: newBalance,
		State:      state,
	}, nil
}

// ListScenarios returns the caller's scenarios, most recently updated first
func (s *ScenarioServiceImpl) ListScenarios(ctx context.Context, ident identity.Identity) ([]*scenario.Scenario, error) {
	if ident.IsAnonymous() {
		return nil, identity.ErrUnauthorized
	}
	return s.scenarioRepo.GetByAuthorID(ctx, ident.AccountID)
}

// GetScenario returns nil when the scenario does not exist or belongs to a
// different author. The two cases are indistinguishable to the caller so
// scenario IDs cannot be probed.
func (s *ScenarioServiceImpl) GetScenario(ctx context.Context, id uuid.UUID, ident identity.Identity) (*scenario.Scenario, error) {
	if ident.IsAnonymous() {
		return nil, identity.ErrUnauthorized
	}

	sc, err := s.scenarioRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scenario.ErrScenarioNotFound{}) {
			return nil, nil
		}
		return nil, err
	}
	if sc.AuthorID != ident.AccountID {
		return nil, nil
	}
	return sc, nil
}

// writeScenario performs the create or edit. Edits of scenarios owned by
// someone else report not-found, same as GetScenario.
func (s *ScenarioServiceImpl) writeScenario(ctx context.Context, ident identity.Identity, input SaveScenarioInput) (*scenario.Scenario, bool, error) {
	if input.ScenarioID == uuid.Nil {
		sc, err := scenario.New(ident.AccountID, input.UISettings, input.Messages, input.PreviewImageID)
		if err != nil {
			return nil, false, err
		}
		if err := s.scenarioRepo.Create(ctx, sc); err != nil {
			return nil, false, err
		}
		return sc, true, nil
	}

	sc, err := s.scenarioRepo.GetByID(ctx, input.ScenarioID)
	if err != nil {
		return nil, false, err
	}
	if sc.AuthorID != ident.AccountID {
		return nil, false, scenario.ErrScenarioNotFound{ScenarioID: input.ScenarioID}
	}

	if err := sc.ApplyEdit(input.UISettings, input.Messages, input.PreviewImageID); err != nil {
		return nil, false, err
	}
	if err := s.scenarioRepo.Update(ctx, sc); err != nil {
		return nil, false, err
	}
	return sc, false, nil
}

// recordPartialCommit writes the UNPAID_SCENARIO anomaly, notifies the
// reconciler, and wraps the debit failure. The anomaly write itself is best
// effort; if it also fails, the structured error log is the residue record.
func (s *ScenarioServiceImpl) recordPartialCommit(ctx context.Context, accountID, scenarioID uuid.UUID, cost int64, wasCreated bool, cause error) error {
	metrics.PartialCommits.Inc()

	s.logger.Error("Scenario saved but debit failed",
		"scenario_id", scenarioID.String(),
		"account_id", accountID.String(),
		"cost", cost,
		"scenario_was_created", wasCreated,
		"error", cause,
	)

	a := anomaly.NewUnpaidScenario(accountID, scenarioID, cost, wasCreated)
	if err := s.anomalyRepo.Create(ctx, a); err != nil {
		s.logger.Error("Failed to record unpaid-scenario anomaly",
			"scenario_id", scenarioID.String(),
			"account_id", accountID.String(),
			"error", err,
		)
	} else if s.publisher != nil {
		event := shared.AnomalyEvent{
			AnomalyID:  a.ID,
			Kind:       string(a.Kind),
			AccountID:  a.AccountID,
			ScenarioID: a.ScenarioID,
			Cost:       a.Cost,
			Timestamp:  a.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, accountID.String(), event); err != nil {
			s.logger.Warn("Failed to publish anomaly event, poller will pick it up",
				"anomaly_id", a.ID,
				"error", err,
			)
		}
	}

	return shared.ErrPartialCommit{
		ScenarioID: scenarioID,
		AccountID:  accountID,
		Cost:       cost,
		Cause:      cause,
	}
}
