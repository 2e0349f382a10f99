package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/textmock/textmock-server/internal/domain/anomaly"
	"github.com/textmock/textmock-server/internal/domain/shared"
	"github.com/textmock/textmock-server/internal/platform/messaging/producers"
)

// AnomalyEventHandler handles incoming anomaly events from Kafka. The event
// only carries the anomaly id; the record itself is re-read so a stale or
// replayed event can never act on outdated state.
type AnomalyEventHandler struct {
	anomalyRepo       anomaly.Repository
	resolutionService ResolutionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewAnomalyEventHandler creates a new handler
func NewAnomalyEventHandler(
	logger *slog.Logger,
	anomalyRepo anomaly.Repository,
	resolutionService ResolutionService,
	producer producers.DeadLetterPublisher,
) *AnomalyEventHandler {
	return &AnomalyEventHandler{
		anomalyRepo:       anomalyRepo,
		resolutionService: resolutionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *AnomalyEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.AnomalyEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal anomaly event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received anomaly event",
		"anomaly_id", event.AnomalyID,
		"kind", event.Kind,
		"account_id", event.AccountID.String(),
	)

	a, err := h.anomalyRepo.GetByID(ctx, event.AnomalyID)
	if err != nil {
		if errors.Is(err, anomaly.ErrAnomalyNotFound{}) {
			logger.Warn("Anomaly referenced by event does not exist, dropping",
				"anomaly_id", event.AnomalyID,
			)
			return nil
		}
		return fmt.Errorf("failed to load anomaly %d: %w", event.AnomalyID, err)
	}

	if err := h.resolutionService.ResolveAnomaly(ctx, a); err != nil {
		logger.Error("Failed to resolve anomaly from event",
			"anomaly_id", a.ID,
			"error", err,
		)
		return fmt.Errorf("resolving anomaly %d failed: %w", a.ID, err)
	}

	logger.Info("Successfully handled anomaly event", "anomaly_id", a.ID)
	return nil
}
