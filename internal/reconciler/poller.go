package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/textmock/textmock-server/internal/config"
	"github.com/textmock/textmock-server/internal/domain/anomaly"
)

// Poller periodically sweeps pending commit anomalies. It is the safety net
// behind the Kafka nudge: every anomaly is eventually picked up here even if
// its event was never published or got lost.
type Poller struct {
	anomalyRepo       anomaly.Repository
	resolutionService ResolutionService
	logger            *slog.Logger
	pollInterval      time.Duration
	batchSize         int
}

func NewPoller(
	cfg *config.ReconcilerConfig,
	anomalyRepo anomaly.Repository,
	resolutionService ResolutionService,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		anomalyRepo:       anomalyRepo,
		resolutionService: resolutionService,
		logger:            logger,
		pollInterval:      cfg.PollingInterval,
		batchSize:         cfg.BatchSize,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting anomaly poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Anomaly poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Anomaly poller tick: processing pending anomalies")
			if err := p.processPendingAnomalies(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending anomalies", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingAnomalies(ctx context.Context) error {
	anomalies, err := p.anomalyRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending anomalies: %w", err)
	}

	if len(anomalies) == 0 {
		p.logger.Debug("No pending anomalies found.")
		return nil
	}

	p.logger.Info("Fetched pending anomalies", "count", len(anomalies))

	for _, a := range anomalies {
		if err := p.resolutionService.ResolveAnomaly(ctx, a); err != nil {
			p.logger.Error("Failed to resolve anomaly",
				"anomaly_id", a.ID,
				"kind", string(a.Kind),
				"attempts", a.Attempts,
				"error", err,
			)
			// The next sweep retries; per-anomaly bookkeeping lives in the resolver
			continue
		}
	}
	return nil
}
