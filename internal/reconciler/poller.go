package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pixel-money/wallet-core/internal/config"
	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
)

// EscalationPublisher publishes reconciliation events
type EscalationPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Poller scans the ledger for transactions that never reached a terminal
// status. A PENDING record older than the configured age means its saga
// died mid-flight; the poller promotes it to NEEDS_RECONCILIATION and
// publishes an escalation so it enters the same review path as
// orchestrator-reported drift.
type Poller struct {
	ledgerRepo   ledger.Repository
	escalations  EscalationPublisher
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	pendingAge   time.Duration
}

// NewPoller creates a ledger poller.
func NewPoller(
	cfg *config.ReconcilerConfig,
	ledgerRepo ledger.Repository,
	escalations EscalationPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		ledgerRepo:   ledgerRepo,
		escalations:  escalations,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
		pendingAge:   cfg.PendingAge,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting ledger poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"pending_age", p.pendingAge.String(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Ledger poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Ledger poller tick: scanning for unsettled transactions")
			if err := p.scan(ctx); err != nil {
				p.logger.Error("Error during ledger scan", "error", err)
			}
		}
	}
}

func (p *Poller) scan(ctx context.Context) error {
	if err := p.escalateStalePending(ctx); err != nil {
		return err
	}

	// Records already escalated are re-reported each cycle until an
	// operator settles them; silence would hide unfinished money.
	for _, status := range []ledger.Status{ledger.StatusPendingConfirmation, ledger.StatusNeedsReconciliation} {
		txs, err := p.ledgerRepo.ListByStatus(ctx, status, time.Now(), p.batchSize)
		if err != nil {
			return fmt.Errorf("failed to list %s transactions: %w", status, err)
		}
		if len(txs) > 0 {
			p.logger.Warn("Unsettled transactions awaiting reconciliation",
				"status", string(status),
				"count", len(txs),
			)
		}
	}

	return nil
}

func (p *Poller) escalateStalePending(ctx context.Context) error {
	cutoff := time.Now().Add(-p.pendingAge)
	stale, err := p.ledgerRepo.ListByStatus(ctx, ledger.StatusPending, cutoff, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale pending transactions: %w", err)
	}

	if len(stale) == 0 {
		p.logger.Debug("No stale pending transactions found.")
		return nil
	}

	p.logger.Info("Found stale pending transactions", "count", len(stale))

	for _, tx := range stale {
		if err := p.ledgerRepo.Finalize(ctx, []uuid.UUID{tx.ID}, ledger.StatusNeedsReconciliation, nil); err != nil {
			p.logger.Error("Failed to promote stale transaction",
				"transaction_id", tx.ID.String(),
				"error", err,
			)
			continue
		}

		tx.Status = ledger.StatusNeedsReconciliation
		event := reconciliation.NewEscalation(tx, reconciliation.ReasonStalePending,
			fmt.Sprintf("pending since %s", tx.CreatedAt.Format(time.RFC3339)))
		if err := p.escalations.Publish(ctx, tx.ID.String(), event); err != nil {
			p.logger.Error("Failed to publish stale-pending escalation",
				"transaction_id", tx.ID.String(),
				"error", err,
			)
		}
	}

	return nil
}
