// Package postgres provides PostgreSQL implementations of the domain repositories.
// It holds the authoritative token balances and the commit anomaly records used
// for partial-failure reconciliation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/textmock/textmock-server/internal/domain/account"
	"github.com/textmock/textmock-server/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// CreateIfAbsent provisions an account unless one already exists for the same
// id. ON CONFLICT DO NOTHING makes first-touch provisioning safe under
// concurrent requests: exactly one caller observes created=true.
func (r *AccountRepository) CreateIfAbsent(ctx context.Context, acc *account.Account) (bool, error) {
	query := `
		INSERT INTO accounts (id, display_name, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.DisplayName,
		acc.Balance,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "id", acc.ID.String(), "error", err)
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, display_name, balance, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.DisplayName,
		&acc.Balance,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// UpdateBalance applies a signed delta using optimistic locking. The version
// predicate serializes the read-check-write cycle per account: if another
// writer got in between, no row matches and ErrConcurrentModification is
// returned. The balance predicate is a second line of defense against a
// negative balance ever reaching the table.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, delta int64, version int) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND balance + $1 >= 0
	`

	result, err := r.querier.Exec(ctx, query, delta, id, version)
	if err != nil {
		r.logger.Error("Failed to update account balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: id}
	}

	return nil
}
