package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrEmptyDisplayName = errors.New("display name cannot be empty")
)

// Account holds a user's token balance
type Account struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Balance     int64     `json:"balance"` // Token count, never negative
	Version     int       `json:"version"` // For optimistic locking
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAccount creates a new account with the given sign-up bonus as starting balance
func NewAccount(id uuid.UUID, displayName string, signupBonus int64) (*Account, error) {
	if id == uuid.Nil {
		return nil, errors.New("account id cannot be nil")
	}
	if displayName == "" {
		return nil, ErrEmptyDisplayName
	}
	if signupBonus < 0 {
		return nil, ErrInvalidAmount
	}

	return &Account{
		ID:          id,
		DisplayName: displayName,
		Balance:     signupBonus,
		Version:     1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// Credit adds the specified token amount to the account balance
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Debit subtracts the specified token amount from the account balance
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if a.Balance < amount {
		return ErrInsufficientFunds{Required: amount, Available: a.Balance}
	}

	a.Balance -= amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// CanDebit checks if the account holds enough tokens for a debit
func (a *Account) CanDebit(amount int64) bool {
	return a.Balance >= amount
}

// ErrInsufficientFunds indicates the balance cannot cover a debit.
// It carries the required and available token amounts for the caller.
type ErrInsufficientFunds struct {
	Required  int64
	Available int64
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: required %d tokens, available %d", e.Required, e.Available)
}

// Is implements the errors.Is interface for ErrInsufficientFunds
func (e ErrInsufficientFunds) Is(target error) bool {
	_, ok := target.(ErrInsufficientFunds)
	return ok
}
