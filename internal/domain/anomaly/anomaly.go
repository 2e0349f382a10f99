package anomaly

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/textmock/textmock-server/internal/domain/ledger"
)

// Kind categorizes a commit anomaly
type Kind string

const (
	// KindUnpaidScenario records a scenario that was persisted while the
	// matching token debit failed (the PartialCommit residue).
	KindUnpaidScenario Kind = "UNPAID_SCENARIO"

	// KindMissingEntry records a balance change whose audit entry was not
	// written. The payload carries the entry to backfill.
	KindMissingEntry Kind = "MISSING_ENTRY"
)

// Status defines anomaly resolution states
type Status string

const (
	StatusPending Status = "PENDING"

	// StatusProcessing marks an anomaly claimed by a resolver. The claim
	// keeps the poller and the event consumer from repairing the same
	// record concurrently.
	StatusProcessing Status = "PROCESSING"

	StatusResolved Status = "RESOLVED"

	// StatusFailed marks anomalies the reconciler gave up on; they need
	// manual review.
	StatusFailed Status = "FAILED"
)

// Anomaly stores a partial-failure residue for out-of-band reconciliation
type Anomaly struct {
	ID                 int64           `json:"id"`
	Kind               Kind            `json:"kind"`
	AccountID          uuid.UUID       `json:"account_id"`
	ScenarioID         uuid.UUID       `json:"scenario_id"` // uuid.Nil when not scenario-related
	Cost               int64           `json:"cost"`
	ScenarioWasCreated bool            `json:"scenario_was_created"`
	Payload            json.RawMessage `json:"payload,omitempty"`
	Status             Status          `json:"status"`
	Attempts           int             `json:"attempts"`
	CreatedAt          time.Time       `json:"created_at"`
	LastAttemptAt      *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewUnpaidScenario records a scenario write whose debit failed. wasCreated
// distinguishes a fresh orphan (safe to delete if the charge never succeeds)
// from an edit of a pre-existing scenario (never deleted).
func NewUnpaidScenario(accountID, scenarioID uuid.UUID, cost int64, wasCreated bool) *Anomaly {
	return &Anomaly{
		Kind:               KindUnpaidScenario,
		AccountID:          accountID,
		ScenarioID:         scenarioID,
		Cost:               cost,
		ScenarioWasCreated: wasCreated,
		Status:             StatusPending,
		CreatedAt:          time.Now(),
	}
}

// NewMissingEntry records an audit entry that failed to persist after its
// balance change was already applied.
func NewMissingEntry(entry *ledger.Entry) (*Anomaly, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Anomaly{
		Kind:      KindMissingEntry,
		AccountID: entry.AccountID,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}, nil
}

func (a *Anomaly) IncrementAttempts() {
	a.Attempts++
	now := time.Now()
	a.LastAttemptAt = &now
}

func (a *Anomaly) MarkResolved() {
	a.Status = StatusResolved
	now := time.Now()
	a.LastAttemptAt = &now
}

func (a *Anomaly) MarkFailed() {
	a.Status = StatusFailed
	now := time.Now()
	a.LastAttemptAt = &now
}

// GetLedgerEntry extracts the entry to backfill from a MISSING_ENTRY payload
func (a *Anomaly) GetLedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(a.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
