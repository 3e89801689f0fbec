// Package producers holds the Kafka writers for the reconciliation
// pipeline: the escalation topic the orchestrator reports into and the
// dead-letter topic the reconciler parks poison messages on.
package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes a JSON-encoded event under a partitioning key.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks a message that could not be processed so the
// consumer can commit past it without losing the payload.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers use. Tests
// substitute a mock.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
