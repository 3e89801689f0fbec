package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/pixel-money/wallet-core/internal/config"
)

// EscalationProducer publishes reconciliation escalation events. Writes
// are synchronous with full acks: an escalation describes money that has
// already moved, so losing one is worse than a slow request.
type EscalationProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewEscalationProducer creates the escalation producer and ensures the
// topic exists.
func NewEscalationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EscalationProducer, error) {
	if cfg.EscalationTopic == "" {
		return nil, fmt.Errorf("kafka escalation topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for escalation producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.EscalationTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure escalation topic %s exists: %w", cfg.EscalationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EscalationTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write escalation messages", "topic", cfg.EscalationTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Wrote escalation messages", "topic", cfg.EscalationTopic, "count", len(messages))
			}
		},
	}

	return &EscalationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EscalationTopic,
	}, nil
}

func (p *EscalationProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation message value: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish escalation message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish escalation message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published escalation message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EscalationProducer) Close() error {
	p.logger.Info("Closing escalation Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close escalation kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
