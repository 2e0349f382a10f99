package scenario

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages scenario persistence. Scenarios are written once per
// commit-protocol run; no two protocol instances mutate the same id
// concurrently.
type Repository interface {
	Create(ctx context.Context, s *Scenario) error
	Update(ctx context.Context, s *Scenario) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scenario, error)

	// GetByAuthorID lists an author's scenarios, most recently updated first.
	GetByAuthorID(ctx context.Context, authorID uuid.UUID) ([]*Scenario, error)

	// Delete removes a scenario record. Only the reconciler uses this, to
	// clean up orphaned unpaid creates.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrScenarioNotFound indicates missing scenario
type ErrScenarioNotFound struct {
	ScenarioID uuid.UUID
}

func (e ErrScenarioNotFound) Error() string {
	return "scenario not found: " + e.ScenarioID.String()
}

// Is implements the errors.Is interface for ErrScenarioNotFound
func (e ErrScenarioNotFound) Is(target error) bool {
	t, ok := target.(ErrScenarioNotFound)
	if !ok {
		return false
	}
	if t.ScenarioID == uuid.Nil {
		return true
	}
	return e.ScenarioID == t.ScenarioID
}
