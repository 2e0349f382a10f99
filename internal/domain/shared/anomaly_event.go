package shared

import (
	"time"

	"github.com/google/uuid"
)

// AnomalyEvent defines a Kafka message nudging the reconciler to pick up a
// freshly recorded commit anomaly. The anomaly table remains the source of
// truth; the poller catches anything a lost event would leave behind.
type AnomalyEvent struct {
	AnomalyID     int64     `json:"anomaly_id"`
	Kind          string    `json:"kind"`
	AccountID     uuid.UUID `json:"account_id"`
	ScenarioID    uuid.UUID `json:"scenario_id,omitempty"`
	Cost          int64     `json:"cost"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
