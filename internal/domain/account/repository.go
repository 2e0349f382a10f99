package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines account persistence operations
type Repository interface {
	// CreateIfAbsent atomically creates the account unless one with the same
	// ID already exists. Returns true if a new row was inserted.
	CreateIfAbsent(ctx context.Context, account *Account) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// UpdateBalance applies a signed delta to the balance using optimistic
	// locking. The update only succeeds if the stored version still matches
	// the version observed by the caller; otherwise ErrConcurrentModification
	// is returned and the caller must re-read and retry.
	UpdateBalance(ctx context.Context, id uuid.UUID, delta int64, version int) error
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || e.AccountID == t.AccountID
}
