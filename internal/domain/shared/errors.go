package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrPartialCommit indicates a scenario was persisted but the matching token
// debit failed. The account was NOT charged; a reconciliation record has been
// written so the charge can be retried or the orphan removed out of band.
type ErrPartialCommit struct {
	ScenarioID uuid.UUID
	AccountID  uuid.UUID
	Cost       int64
	Cause      error
}

func (e ErrPartialCommit) Error() string {
	return fmt.Sprintf("partial commit: scenario %s saved but debit of %d tokens from account %s failed: %v",
		e.ScenarioID, e.Cost, e.AccountID, e.Cause)
}

func (e ErrPartialCommit) Unwrap() error {
	return e.Cause
}

// Is implements the errors.Is interface for ErrPartialCommit
func (e ErrPartialCommit) Is(target error) bool {
	_, ok := target.(ErrPartialCommit)
	return ok
}
