// Package reconciler is the background worker that watches for
// transactions stuck between PENDING and a terminal status, and triages
// the escalation events the orchestrator publishes when money moved but
// bookkeeping did not finish.
package reconciler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/logger"
)

// ReviewService triages one escalation event
type ReviewService interface {
	Review(ctx context.Context, escalation *reconciliation.Escalation) error
}

// TriageService implements ReviewService against the ledger. It does not
// move money; it verifies the current state of the escalated transaction
// and produces the operator-facing record.
type TriageService struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewTriageService creates a new triage service
func NewTriageService(log *slog.Logger, ledgerRepo ledger.Repository) *TriageService {
	return &TriageService{
		ledgerRepo: ledgerRepo,
		logger:     log,
	}
}

// Review checks the escalated transaction against the ledger. An
// escalation describes the state at publish time; the record may have
// been corrected since, in which case the event is acknowledged quietly.
func (s *TriageService) Review(ctx context.Context, escalation *reconciliation.Escalation) error {
	log := s.logger
	if escalation.CorrelationID != "" {
		log = s.logger.With("correlation_id", escalation.CorrelationID)
	}

	tx, err := s.ledgerRepo.GetByID(ctx, escalation.TransactionID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound{}) {
			log.Error("Escalated transaction missing from ledger",
				"transaction_id", escalation.TransactionID.String(),
				"reason", string(escalation.Reason),
			)
			return nil
		}
		return err // Transient; let the consumer retry
	}

	if tx.Status == ledger.StatusCompleted {
		log.Info("Escalated transaction already settled",
			"transaction_id", tx.ID.String(),
			"reason", string(escalation.Reason),
		)
		return nil
	}

	logger.Critical(log, "Transaction requires operator reconciliation",
		"transaction_id", tx.ID.String(),
		"status", string(tx.Status),
		"type", string(tx.Type),
		"amount", tx.Amount.StringFixed(2),
		"user_id", tx.ActingUserID,
		"reason", string(escalation.Reason),
		"detail", escalation.Detail,
	)
	return nil
}

var _ ReviewService = (*TriageService)(nil)
