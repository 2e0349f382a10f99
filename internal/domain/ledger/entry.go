package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind categorizes a balance change in the audit log
type Kind string

const (
	KindPurchase    Kind = "purchase"
	KindConsumption Kind = "consumption"
	KindBonus       Kind = "bonus"
)

// Entry is an immutable audit record of a single token balance change.
// Amount is signed: positive for credits, negative for debits. The sum of
// all entries for an account must equal its current balance.
type Entry struct {
	EntryID       uuid.UUID `json:"entry_id" bson:"entry_id"`
	AccountID     uuid.UUID `json:"account_id" bson:"account_id"`
	Kind          Kind      `json:"kind" bson:"kind"`
	Amount        int64     `json:"amount" bson:"amount"`
	ReferenceID   string    `json:"reference_id,omitempty" bson:"reference_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// NewEntry builds an audit entry for a balance change that has been applied.
// The signed amount is taken as-is; callers negate debits.
func NewEntry(accountID uuid.UUID, kind Kind, amount int64, referenceID string) *Entry {
	return &Entry{
		EntryID:     uuid.New(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}
}
