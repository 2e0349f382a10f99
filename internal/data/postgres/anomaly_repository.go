package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/platform/persistence"
)

// AnomalyRepository implements the anomaly.Repository interface for PostgreSQL
type AnomalyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAnomalyRepository creates a new PostgreSQL commit anomaly repository
func NewAnomalyRepository(logger *slog.Logger, db *persistence.PostgresDB) anomaly.Repository {
	return &AnomalyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a new anomaly in pending status. The record will be picked up
// by the reconciler, either via the Kafka event or the safety-net poller.
func (r *AnomalyRepository) Create(ctx context.Context, a *anomaly.Anomaly) error {
	query := `
		INSERT INTO commit_anomalies (kind, account_id, scenario_id, cost, scenario_was_created, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		a.Kind,
		a.AccountID,
		a.ScenarioID,
		a.Cost,
		a.ScenarioWasCreated,
		a.Payload,
		a.Status,
		a.Attempts,
		a.CreatedAt,
	).Scan(&a.ID)

	if err != nil {
		r.logger.Error("Failed to create commit anomaly",
			"kind", string(a.Kind),
			"account_id", a.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create commit anomaly: %w", err)
	}

	return nil
}

// GetByID retrieves an anomaly by its ID.
// Returns ErrAnomalyNotFound if the record doesn't exist.
func (r *AnomalyRepository) GetByID(ctx context.Context, id int64) (*anomaly.Anomaly, error) {
	query := `
		SELECT id, kind, account_id, scenario_id, cost, scenario_was_created, payload, status, attempts, created_at, last_attempt_at
		FROM commit_anomalies
		WHERE id = $1
	`

	var a anomaly.Anomaly
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Kind,
		&a.AccountID,
		&a.ScenarioID,
		&a.Cost,
		&a.ScenarioWasCreated,
		&a.Payload,
		&a.Status,
		&a.Attempts,
		&a.CreatedAt,
		&a.LastAttemptAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, anomaly.ErrAnomalyNotFound{ID: id}
		}
		r.logger.Error("Failed to get commit anomaly", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get commit anomaly: %w", err)
	}

	return &a, nil
}

// GetPending retrieves a batch of pending anomalies ordered by creation time.
// The reconciler poller processes them in FIFO order.
func (r *AnomalyRepository) GetPending(ctx context.Context, limit int) ([]*anomaly.Anomaly, error) {
	query := `
		SELECT id, kind, account_id, scenario_id, cost, scenario_was_created, payload, status, attempts, created_at, last_attempt_at
		FROM commit_anomalies
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, anomaly.StatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending commit anomalies", "error", err)
		return nil, fmt.Errorf("failed to get pending commit anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []*anomaly.Anomaly
	for rows.Next() {
		var a anomaly.Anomaly
		err := rows.Scan(
			&a.ID,
			&a.Kind,
			&a.AccountID,
			&a.ScenarioID,
			&a.Cost,
			&a.ScenarioWasCreated,
			&a.Payload,
			&a.Status,
			&a.Attempts,
			&a.CreatedAt,
			&a.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan commit anomaly", "error", err)
			return nil, fmt.Errorf("failed to scan commit anomaly: %w", err)
		}
		anomalies = append(anomalies, &a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over commit anomalies", "error", err)
		return nil, fmt.Errorf("error iterating over commit anomalies: %w", err)
	}

	return anomalies, nil
}

// Claim conditionally moves a pending anomaly to processing. The WHERE clause
// makes the claim atomic: when the event consumer and the poller race over the
// same record, exactly one of them sees a row affected.
func (r *AnomalyRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE commit_anomalies
		SET status = $1, last_attempt_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, anomaly.StatusProcessing, time.Now(), id, anomaly.StatusPending)
	if err != nil {
		r.logger.Error("Failed to claim commit anomaly", "id", id, "error", err)
		return false, fmt.Errorf("failed to claim commit anomaly: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// UpdateStatus updates the anomaly status and last attempt timestamp.
// Returns ErrAnomalyNotFound if the record doesn't exist.
func (r *AnomalyRepository) UpdateStatus(ctx context.Context, id int64, status anomaly.Status) error {
	query := `
		UPDATE commit_anomalies
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update commit anomaly status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update commit anomaly status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return anomaly.ErrAnomalyNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts bumps the attempt counter after a failed resolution
func (r *AnomalyRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE commit_anomalies
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment commit anomaly attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment commit anomaly attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return anomaly.ErrAnomalyNotFound{ID: id}
	}

	return nil
}
