package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/textmock/textmock-server/internal/config"
)

// AnomalyEventProducer publishes commit anomaly events so the reconciler can
// react promptly instead of waiting for its next poll.
type AnomalyEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewAnomalyEventProducer creates the producer and ensures the topic exists
func NewAnomalyEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AnomalyEventProducer, error) {
	if cfg.AnomalyTopic == "" {
		return nil, fmt.Errorf("kafka anomaly topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for anomaly producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.AnomalyTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure anomaly topic %s exists: %w", cfg.AnomalyTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AnomalyTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Events are advisory; the poller is the safety net
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write anomaly events asynchronously", "topic", cfg.AnomalyTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote anomaly events asynchronously", "topic", cfg.AnomalyTopic, "count", len(messages))
			}
		},
	}

	return &AnomalyEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.AnomalyTopic,
	}, nil
}

func (p *AnomalyEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal anomaly event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish anomaly event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish anomaly event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published anomaly event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *AnomalyEventProducer) Close() error {
	p.logger.Info("Closing anomaly event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close anomaly kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
