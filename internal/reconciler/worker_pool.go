package reconciler

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/textmock/textmock-server/internal/config"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
)

// WorkerPoolResolutionService fans anomaly resolution out over a bounded
// worker pool while keeping the caller's synchronous contract.
type WorkerPoolResolutionService struct {
	baseService ResolutionService
	pool        *ants.Pool
	logger      *slog.Logger
}

func NewWorkerPoolResolutionService(
	baseService ResolutionService,
	cfg config.WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolResolutionService, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolResolutionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ResolveAnomaly submits the anomaly to the worker pool and waits for the result
func (s *WorkerPoolResolutionService) ResolveAnomaly(ctx context.Context, a *anomaly.Anomaly) error {
	s.logger.Info("Submitting anomaly to worker pool",
		"anomaly_id", a.ID,
		"kind", string(a.Kind),
		"account_id", a.AccountID.String(),
	)

	// The buffered channel is owned by this submission; concurrent calls for
	// the same anomaly never share state.
	resultChan := make(chan error, 1)

	// Copy so the worker never races the caller's pointer
	anomalyCopy := *a

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ResolveAnomaly(ctx, &anomalyCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit anomaly to worker pool",
			"anomaly_id", a.ID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolResolutionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolResolutionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool
func (s *WorkerPoolResolutionService) Capacity() int {
	return s.pool.Cap()
}
