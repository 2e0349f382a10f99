package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/textmock/textmock-server/internal/domain/identity"
	"github.com/textmock/textmock-server/internal/domain/ledger"
	"github.com/textmock/textmock-server/internal/domain/scenario"
	"github.com/textmock/textmock-server/internal/domain/shared"
)

// LedgerService owns all token balance changes. Balances are never mutated
// outside this engine, and every change appends an audit entry.
type LedgerService interface {
	// GetBalance returns the authoritative balance for the caller,
	// provisioning a default account on first touch.
	GetBalance(ctx context.Context, ident identity.Identity) (int64, error)

	// Credit increases the balance and appends an entry with positive amount.
	// Concurrent credits never lose an update.
	Credit(ctx context.Context, accountID uuid.UUID, amount int64, kind ledger.Kind, referenceID string) (int64, error)

	// Debit decreases the balance after checking it against the same observed
	// value, appending an entry with negative amount. Returns
	// account.ErrInsufficientFunds without side effects when the balance
	// cannot cover the amount.
	Debit(ctx context.Context, accountID uuid.UUID, amount int64, kind ledger.Kind, referenceID string) (int64, error)

	// BuyTokens simulates a token purchase: an unconditional credit with a
	// synthetic payment reference and a Purchase audit entry.
	BuyTokens(ctx context.Context, ident identity.Identity, amount int64) (int64, error)

	// GetTransactions retrieves a paginated audit history for the caller.
	// Returns entries, total count, and any error.
	GetTransactions(ctx context.Context, ident identity.Identity, page, perPage int) ([]*ledger.Entry, int64, error)

	// AuditBalance compares the balance against the sum of audit entries.
	AuditBalance(ctx context.Context, ident identity.Identity) (*AuditReport, error)
}

// AuditReport is the result of reconciling a balance against its audit log
type AuditReport struct {
	AccountID  uuid.UUID `json:"account_id"`
	Balance    int64     `json:"balance"`
	EntrySum   int64     `json:"entry_sum"`
	Consistent bool      `json:"consistent"`
}

// ScenarioService runs the scenario commit protocol and ownership-checked reads
type ScenarioService interface {
	// SaveScenario persists a scenario edit and charges the save fee. The
	// request ends fully committed, fully rejected, or, when the debit fails
	// after the scenario write, partially failed with a recorded anomaly.
	SaveScenario(ctx context.Context, ident identity.Identity, input SaveScenarioInput) (*SaveScenarioResult, error)

	// ListScenarios returns the caller's scenarios, most recently updated first.
	ListScenarios(ctx context.Context, ident identity.Identity) ([]*scenario.Scenario, error)

	// GetScenario returns nil when the scenario does not exist or is not
	// owned by the caller.
	GetScenario(ctx context.Context, id uuid.UUID, ident identity.Identity) (*scenario.Scenario, error)
}

// SaveScenarioInput carries one commit protocol request
type SaveScenarioInput struct {
	ScenarioID     uuid.UUID // uuid.Nil creates a new scenario
	UISettings     scenario.UISettings
	Messages       []scenario.Message
	PreviewImageID string
}

// SaveScenarioResult reports a committed save
type SaveScenarioResult struct {
	Scenario   *scenario.Scenario
	NewBalance int64
	State      shared.SaveState
}
