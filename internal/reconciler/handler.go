package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/platform/messaging/producers"
)

// EscalationEventHandler handles escalation messages from Kafka
type EscalationEventHandler struct {
	reviewService ReviewService
	producer      producers.DeadLetterPublisher
	logger        *slog.Logger
}

// NewEscalationEventHandler creates a new handler
func NewEscalationEventHandler(
	logger *slog.Logger,
	reviewService ReviewService,
	producer producers.DeadLetterPublisher,
) *EscalationEventHandler {
	return &EscalationEventHandler{
		reviewService: reviewService,
		producer:      producer,
		logger:        logger,
	}
}

// HandleMessage processes Kafka messages
func (h *EscalationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	escalation, err := reconciliation.Decode(value)
	if err != nil {
		unmarshalErrorMsg := "Failed to unmarshal escalation from Kafka message"
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
				h.logger.Info("Published unprocessable escalation to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	log := h.logger
	if escalation.CorrelationID != "" {
		log = h.logger.With("correlation_id", escalation.CorrelationID)
	}

	log.Info("Received escalation for review",
		"transaction_id", escalation.TransactionID.String(),
		"reason", string(escalation.Reason),
		"status", string(escalation.Status),
	)

	if err := h.reviewService.Review(ctx, escalation); err != nil {
		log.Error("Failed to review escalation",
			"transaction_id", escalation.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("reviewing escalation %s failed: %w", escalation.TransactionID.String(), err)
	}

	log.Info("Escalation reviewed", "transaction_id", escalation.TransactionID.String())
	return nil // Success, commit offset
}
