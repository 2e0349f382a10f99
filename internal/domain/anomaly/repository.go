package anomaly

import (
	"context"
	"strconv"
)

// Repository manages commit anomaly persistence
type Repository interface {
	Create(ctx context.Context, a *Anomaly) error
	GetByID(ctx context.Context, id int64) (*Anomaly, error)
	GetPending(ctx context.Context, limit int) ([]*Anomaly, error)
	// Claim atomically moves a pending anomaly to processing. Returns false
	// when the anomaly is no longer pending, meaning another resolver holds
	// it or already finished it.
	Claim(ctx context.Context, id int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	IncrementAttempts(ctx context.Context, id int64) error
}

// ErrAnomalyNotFound indicates missing anomaly record
type ErrAnomalyNotFound struct {
	ID int64
}

func (e ErrAnomalyNotFound) Error() string {
	return "commit anomaly not found: " + strconv.FormatInt(e.ID, 10)
}

// Is implements the errors.Is interface for ErrAnomalyNotFound
func (e ErrAnomalyNotFound) Is(target error) bool {
	t, ok := target.(ErrAnomalyNotFound)
	if !ok {
		return false
	}
	return t.ID == 0 || e.ID == t.ID
}
