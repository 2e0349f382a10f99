package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/textmock/textmock-server/internal/config"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/scenario"
	"github.com/textmock/textmock-server/internal/platform/metrics"
	"github.com/textmock/textmock-server/internal/service"
)

// Resolver repairs commit anomalies. Unpaid scenarios are charged once the
// balance allows it; after the retry budget a fresh orphan is deleted while
// an edited scenario is flagged for manual review, never deleted. Missing
// audit entries are backfilled from the anomaly payload.
type Resolver struct {
	anomalyRepo      anomaly.Repository
	ledgerRepo       ledger.Repository
	scenarioRepo     scenario.Repository
	ledgerSvc        service.LedgerService
	maxRetryAttempts int
	logger           *slog.Logger
}

func NewResolver(
	logger *slog.Logger,
	cfg *config.ReconcilerConfig,
	anomalyRepo anomaly.Repository,
	ledgerRepo ledger.Repository,
	scenarioRepo scenario.Repository,
	ledgerSvc service.LedgerService,
) *Resolver {
	return &Resolver{
		anomalyRepo:      anomalyRepo,
		ledgerRepo:       ledgerRepo,
		scenarioRepo:     scenarioRepo,
		ledgerSvc:        ledgerSvc,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		logger:           logger,
	}
}

// ResolveAnomaly dispatches on the anomaly kind. Already resolved records
// are skipped so redelivered events are harmless.
func (r *Resolver) ResolveAnomaly(ctx context.Context, a *anomaly.Anomaly) error {
	if a.Status != anomaly.StatusPending {
		r.logger.Debug("Skipping anomaly that is no longer pending",
			"anomaly_id", a.ID,
			"status", string(a.Status),
		)
		return nil
	}

	// Claim the record before touching the ledger. The event consumer and
	// the poller can hand over the same pending anomaly at the same time;
	// the conditional update lets exactly one resolution proceed, so the
	// account is never charged twice for one scenario.
	claimed, err := r.anomalyRepo.Claim(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("failed to claim anomaly %d: %w", a.ID, err)
	}
	if !claimed {
		r.logger.Debug("Anomaly claimed elsewhere, skipping", "anomaly_id", a.ID)
		return nil
	}
	a.Status = anomaly.StatusProcessing

	var resolveErr error
	switch a.Kind {
	case anomaly.KindUnpaidScenario:
		resolveErr = r.resolveUnpaidScenario(ctx, a)
	case anomaly.KindMissingEntry:
		resolveErr = r.resolveMissingEntry(ctx, a)
	default:
		r.logger.Error("Unknown anomaly kind, flagging for manual review",
			"anomaly_id", a.ID,
			"kind", string(a.Kind),
		)
		resolveErr = r.markFailed(ctx, a, "unknown_kind")
	}

	// A non-terminal outcome hands the claim back so the next sweep retries
	if a.Status == anomaly.StatusProcessing {
		r.releaseClaim(ctx, a)
	}
	return resolveErr
}

func (r *Resolver) releaseClaim(ctx context.Context, a *anomaly.Anomaly) {
	if err := r.anomalyRepo.UpdateStatus(ctx, a.ID, anomaly.StatusPending); err != nil {
		r.logger.Error("Failed to release anomaly claim", "anomaly_id", a.ID, "error", err)
		return
	}
	a.Status = anomaly.StatusPending
}

// resolveUnpaidScenario retries the debit the commit protocol could not
// complete. The consumption entry referencing the scenario is the idempotency
// record; if it exists the account was already charged.
func (r *Resolver) resolveUnpaidScenario(ctx context.Context, a *anomaly.Anomaly) error {
	existing, err := r.ledgerRepo.GetByReference(ctx, a.AccountID, ledger.KindConsumption, a.ScenarioID.String())
	if err != nil {
		return fmt.Errorf("failed to check for existing consumption entry: %w", err)
	}
	if existing != nil {
		r.logger.Info("Scenario already paid for, resolving anomaly",
			"anomaly_id", a.ID,
			"scenario_id", a.ScenarioID.String(),
			"entry_id", existing.EntryID.String(),
		)
		return r.markResolved(ctx, a, "already_charged")
	}

	_, err = r.ledgerSvc.Debit(ctx, a.AccountID, a.Cost, ledger.KindConsumption, a.ScenarioID.String())
	if err == nil {
		r.logger.Info("Charged unpaid scenario",
			"anomaly_id", a.ID,
			"scenario_id", a.ScenarioID.String(),
			"account_id", a.AccountID.String(),
			"cost", a.Cost,
		)
		metrics.TokensDebited.Add(float64(a.Cost))
		return r.markResolved(ctx, a, "charged")
	}

	if !errors.Is(err, account.ErrInsufficientFunds{}) {
		r.logger.Error("Failed to charge unpaid scenario",
			"anomaly_id", a.ID,
			"scenario_id", a.ScenarioID.String(),
			"error", err,
		)
		if errInc := r.anomalyRepo.IncrementAttempts(ctx, a.ID); errInc != nil {
			r.logger.Error("Failed to increment anomaly attempts", "anomaly_id", a.ID, "error", errInc)
		}
		return err
	}

	// The account still cannot cover the fee. Burn one attempt and decide
	// what to do when the budget runs out.
	if errInc := r.anomalyRepo.IncrementAttempts(ctx, a.ID); errInc != nil {
		r.logger.Error("Failed to increment anomaly attempts", "anomaly_id", a.ID, "error", errInc)
		return errInc
	}

	if a.Attempts+1 < r.maxRetryAttempts {
		r.logger.Info("Account cannot cover unpaid scenario yet, will retry",
			"anomaly_id", a.ID,
			"account_id", a.AccountID.String(),
			"attempts", a.Attempts+1,
		)
		return nil
	}

	if a.ScenarioWasCreated {
		// A create that was never paid for is removed; the author loses
		// nothing they had before the failed save.
		if errDel := r.scenarioRepo.Delete(ctx, a.ScenarioID); errDel != nil && !errors.Is(errDel, scenario.ErrScenarioNotFound{}) {
			r.logger.Error("Failed to delete orphaned scenario",
				"anomaly_id", a.ID,
				"scenario_id", a.ScenarioID.String(),
				"error", errDel,
			)
			return errDel
		}
		r.logger.Warn("Deleted orphaned unpaid scenario after retry budget",
			"anomaly_id", a.ID,
			"scenario_id", a.ScenarioID.String(),
			"attempts_made", a.Attempts+1,
		)
		return r.markResolved(ctx, a, "orphan_deleted")
	}

	// An unpaid edit keeps the scenario; the pre-edit content is gone and
	// deleting the record would destroy the author's work.
	r.logger.Warn("Unpaid scenario edit exhausted retry budget, flagging for manual review",
		"anomaly_id", a.ID,
		"scenario_id", a.ScenarioID.String(),
		"attempts_made", a.Attempts+1,
	)
	return r.markFailed(ctx, a, "manual_review")
}

// resolveMissingEntry backfills an audit entry whose balance change was
// already applied. The entry id makes the insert idempotent.
func (r *Resolver) resolveMissingEntry(ctx context.Context, a *anomaly.Anomaly) error {
	entry, err := a.GetLedgerEntry()
	if err != nil {
		r.logger.Error("Anomaly payload does not decode to a ledger entry",
			"anomaly_id", a.ID,
			"error", err,
		)
		return r.markFailed(ctx, a, "bad_payload")
	}

	_, err = r.ledgerRepo.GetByEntryID(ctx, entry.EntryID)
	if err == nil {
		r.logger.Info("Ledger entry already present, resolving anomaly",
			"anomaly_id", a.ID,
			"entry_id", entry.EntryID.String(),
		)
		return r.markResolved(ctx, a, "already_present")
	}
	if !errors.Is(err, ledger.ErrEntryNotFound{}) {
		return fmt.Errorf("failed to check for existing ledger entry: %w", err)
	}

	if err := r.ledgerRepo.Create(ctx, entry); err != nil {
		r.logger.Error("Failed to backfill ledger entry",
			"anomaly_id", a.ID,
			"entry_id", entry.EntryID.String(),
			"error", err,
		)
		if errInc := r.anomalyRepo.IncrementAttempts(ctx, a.ID); errInc != nil {
			r.logger.Error("Failed to increment anomaly attempts", "anomaly_id", a.ID, "error", errInc)
		}
		if a.Attempts+1 >= r.maxRetryAttempts {
			return r.markFailed(ctx, a, "manual_review")
		}
		return err
	}

	r.logger.Info("Backfilled missing ledger entry",
		"anomaly_id", a.ID,
		"entry_id", entry.EntryID.String(),
		"account_id", entry.AccountID.String(),
		"amount", entry.Amount,
	)
	return r.markResolved(ctx, a, "backfilled")
}

func (r *Resolver) markResolved(ctx context.Context, a *anomaly.Anomaly, outcome string) error {
	if err := r.anomalyRepo.UpdateStatus(ctx, a.ID, anomaly.StatusResolved); err != nil {
		return fmt.Errorf("failed to mark anomaly %d resolved: %w", a.ID, err)
	}
	a.MarkResolved()
	metrics.AnomaliesResolved.WithLabelValues(string(a.Kind), outcome).Inc()
	return nil
}

func (r *Resolver) markFailed(ctx context.Context, a *anomaly.Anomaly, outcome string) error {
	if err := r.anomalyRepo.UpdateStatus(ctx, a.ID, anomaly.StatusFailed); err != nil {
		return fmt.Errorf("failed to mark anomaly %d failed: %w", a.ID, err)
	}
	a.MarkFailed()
	metrics.AnomaliesResolved.WithLabelValues(string(a.Kind), outcome).Inc()
	return nil
}
