package reconciler

import (
	"context"

	"github.com/textmock/textmock-server/internal/domain/anomaly"
)

// ResolutionService resolves a single commit anomaly. Implementations must be
// idempotent: the poller and the event consumer can hand over the same
// anomaly more than once.
type ResolutionService interface {
	ResolveAnomaly(ctx context.Context, a *anomaly.Anomaly) error
}
