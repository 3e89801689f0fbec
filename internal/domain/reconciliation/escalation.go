package reconciliation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
)

// Reason classifies why an operation needs operator follow-up
type Reason string

const (
	// ReasonBookkeepingIncomplete: money moved, but idempotency
	// registration or the final status write failed.
	ReasonBookkeepingIncomplete Reason = "BOOKKEEPING_INCOMPLETE"
	// ReasonCompensationFailed: a compensating mutation could not be
	// applied, leaving balances inconsistent.
	ReasonCompensationFailed Reason = "COMPENSATION_FAILED"
	// ReasonInternalBalanceDrift: the group-service internal balance hook
	// failed after the money moved correctly.
	ReasonInternalBalanceDrift Reason = "INTERNAL_BALANCE_DRIFT"
	// ReasonStalePending: a PENDING record exceeded the age threshold
	// without reaching a terminal status.
	ReasonStalePending Reason = "STALE_PENDING"
)

// Escalation is the event published when a saga leaves a transaction in a
// state that downstream tooling must scan for and correct out-of-band.
type Escalation struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	UserID        int64         `json:"user_id"`
	GroupID       *int64        `json:"group_id,omitempty"`
	Status        ledger.Status `json:"status"`
	Reason        Reason        `json:"reason"`
	Detail        string        `json:"detail,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// NewEscalation builds an escalation for a transaction record.
func NewEscalation(tx *ledger.Transaction, reason Reason, detail string) *Escalation {
	return &Escalation{
		TransactionID: tx.ID,
		UserID:        tx.ActingUserID,
		GroupID:       tx.ActingGroupID,
		Status:        tx.Status,
		Reason:        reason,
		Detail:        detail,
		OccurredAt:    time.Now(),
	}
}

// Encode serializes the escalation for transport.
func (e *Escalation) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses an escalation from its transport form.
func Decode(payload []byte) (*Escalation, error) {
	var e Escalation
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
