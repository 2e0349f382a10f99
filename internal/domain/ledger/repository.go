package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages the append-only audit log with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Entry, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// SumByAccountID totals the signed amounts of all entries for an account.
	// Used for reconciliation against the authoritative balance.
	SumByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// GetByReference finds an entry of the given kind referencing an external
	// record (e.g. the consumption entry that paid for a scenario). Returns
	// nil when no such entry exists.
	GetByReference(ctx context.Context, accountID uuid.UUID, kind Kind, referenceID string) (*Entry, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
