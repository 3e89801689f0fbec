// Package orchestrator coordinates every money-moving operation of the
// wallet. Each operation is a saga: an idempotency lookup, a PENDING
// ledger write set, an ordered list of balance and collaborator steps
// with compensations, and a terminal status write. Failures after money
// has moved never disappear silently; they finalize to
// PENDING_CONFIRMATION or NEEDS_RECONCILIATION and publish an escalation
// event for the reconciler.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/config"
	"github.com/pixel-money/wallet-core/internal/domain/idempotency"
	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
	"github.com/pixel-money/wallet-core/internal/logger"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

// OriginBank identifies this wallet in interbank payloads.
const OriginBank = "PIXEL_MONEY"

// EscalationPublisher publishes reconciliation events for operator
// follow-up.
type EscalationPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Orchestrator runs the wallet's sagas against the balance store, the
// ledger, the idempotency guard, and the remote collaborators.
type Orchestrator struct {
	accounts      wallet.AccountRepository
	groupAccounts wallet.GroupAccountRepository
	loans         wallet.LoanRepository
	ledger        ledger.Repository
	idempotency   idempotency.Repository
	identity      clients.IdentityResolver
	bank          clients.BankGateway
	groupLedger   clients.GroupLedger
	escalations   EscalationPublisher
	metrics       *metrics.Registry
	loanCfg       *config.LoanConfig
	logger        *slog.Logger
}

// New wires an orchestrator from its collaborators.
func New(
	log *slog.Logger,
	accounts wallet.AccountRepository,
	groupAccounts wallet.GroupAccountRepository,
	loans wallet.LoanRepository,
	ledgerRepo ledger.Repository,
	idempotencyRepo idempotency.Repository,
	identity clients.IdentityResolver,
	bank clients.BankGateway,
	groupLedger clients.GroupLedger,
	escalations EscalationPublisher,
	registry *metrics.Registry,
	loanCfg *config.LoanConfig,
) *Orchestrator {
	return &Orchestrator{
		accounts:      accounts,
		groupAccounts: groupAccounts,
		loans:         loans,
		ledger:        ledgerRepo,
		idempotency:   idempotencyRepo,
		identity:      identity,
		bank:          bank,
		groupLedger:   groupLedger,
		escalations:   escalations,
		metrics:       registry,
		loanCfg:       loanCfg,
		logger:        log,
	}
}

// replay returns the transaction previously produced under the key, if
// any. A hit means the operation already ran and must not run again.
func (o *Orchestrator) replay(ctx context.Context, log *slog.Logger, key uuid.UUID) (*ledger.Transaction, bool, error) {
	record, err := o.idempotency.Lookup(ctx, key)
	if err != nil {
		if errors.Is(err, idempotency.ErrKeyNotFound{}) {
			return nil, false, nil
		}
		return nil, false, shared.WrapOpError(shared.CodeInternal, "idempotency lookup failed", err)
	}

	tx, err := o.ledger.GetByID(ctx, record.TransactionID)
	if err != nil {
		return nil, false, shared.WrapOpError(shared.CodeInternal, "failed to load prior transaction for idempotency key", err)
	}

	log.Info("Idempotent replay", "idempotency_key", key.String(), "transaction_id", tx.ID.String(), "status", tx.Status)
	o.metrics.Inc(metrics.IdempotentReplays)
	return tx, true, nil
}

// applyPending writes the PENDING write set across all projections.
func (o *Orchestrator) applyPending(ctx context.Context, ws *ledger.WriteSet) error {
	if err := o.ledger.Apply(ctx, ws); err != nil {
		return shared.WrapOpError(shared.CodeInternal, "failed to record pending transaction", err)
	}
	return nil
}

// complete finalizes a successful saga: status write, idempotency key
// registration, metrics. A bookkeeping failure here comes after the money
// has already moved, so the record transitions to PENDING_CONFIRMATION
// and an escalation is published instead of failing the operation.
func (o *Orchestrator) complete(
	ctx context.Context,
	log *slog.Logger,
	key uuid.UUID,
	ws *ledger.WriteSet,
	primary *ledger.Transaction,
	metadata map[string]string,
	counter string,
) (*ledger.Transaction, error) {
	err := o.ledger.Finalize(ctx, ws.IDs(), ledger.StatusCompleted, metadata)
	if err == nil {
		err = o.idempotency.Register(ctx, key, primary.ID)
		if err != nil && errors.Is(err, idempotency.ErrKeyAlreadyRegistered{}) {
			// Key raced in through another path; the money moved once.
			log.Warn("Idempotency key already registered during completion", "idempotency_key", key.String())
			err = nil
		}
	}

	if err != nil {
		logger.Critical(log, "Bookkeeping incomplete after funds moved",
			"transaction_id", primary.ID.String(),
			"error", err,
		)
		if fErr := o.ledger.Finalize(ctx, ws.IDs(), ledger.StatusPendingConfirmation, metadata); fErr != nil {
			log.Error("Failed to mark transaction pending confirmation", "transaction_id", primary.ID.String(), "error", fErr)
		}
		setStatus(ws, ledger.StatusPendingConfirmation)
		o.escalate(ctx, log, primary, reconciliation.ReasonBookkeepingIncomplete, err.Error())
		mergeMetadata(ws, metadata)
		return primary, nil
	}

	setStatus(ws, ledger.StatusCompleted)
	mergeMetadata(ws, metadata)
	o.metrics.Inc(counter)
	log.Info("Operation completed", "transaction_id", primary.ID.String(), "type", primary.Type)
	return primary, nil
}

// failTerminal finalizes the write set to a terminal failure status and
// returns the operation error. The idempotency key is not registered, so
// the caller may retry under the same key.
func (o *Orchestrator) failTerminal(
	ctx context.Context,
	log *slog.Logger,
	ws *ledger.WriteSet,
	primary *ledger.Transaction,
	status ledger.Status,
	opErr *shared.OpError,
) (*ledger.Transaction, error) {
	if err := o.ledger.Finalize(ctx, ws.IDs(), status, nil); err != nil {
		// The record stays PENDING; the reconciler's stale scan picks it up.
		log.Error("Failed to finalize transaction after failure",
			"transaction_id", primary.ID.String(),
			"intended_status", status,
			"error", err,
		)
	}
	setStatus(ws, status)
	log.Warn("Operation failed", "transaction_id", primary.ID.String(), "status", status, "code", opErr.Code, "detail", opErr.Detail)
	return nil, opErr
}

// escalateIrreconcilable handles a saga whose compensation path failed:
// balances are inconsistent and only the reconciler can restore them.
func (o *Orchestrator) escalateIrreconcilable(
	ctx context.Context,
	log *slog.Logger,
	ws *ledger.WriteSet,
	primary *ledger.Transaction,
	detail string,
) (*ledger.Transaction, error) {
	if err := o.ledger.Finalize(ctx, ws.IDs(), ledger.StatusNeedsReconciliation, nil); err != nil {
		log.Error("Failed to mark transaction for reconciliation", "transaction_id", primary.ID.String(), "error", err)
	}
	setStatus(ws, ledger.StatusNeedsReconciliation)
	o.escalate(ctx, log, primary, reconciliation.ReasonCompensationFailed, detail)
	return nil, shared.NewOpError(shared.CodeNeedsReconciliation, "operation left balances inconsistent and was escalated for reconciliation")
}

// escalate logs critically and publishes a reconciliation event. Publish
// failures are logged but never abort the caller; the critical log line is
// the escalation of last resort.
func (o *Orchestrator) escalate(ctx context.Context, log *slog.Logger, tx *ledger.Transaction, reason reconciliation.Reason, detail string) {
	logger.Critical(log, "Transaction escalated for reconciliation",
		"transaction_id", tx.ID.String(),
		"reason", string(reason),
		"detail", detail,
	)
	o.metrics.Inc(metrics.Escalations)

	event := reconciliation.NewEscalation(tx, reason, detail)
	if err := o.escalations.Publish(ctx, tx.ID.String(), event); err != nil {
		log.Error("Failed to publish escalation event", "transaction_id", tx.ID.String(), "error", err)
	}
}

func setStatus(ws *ledger.WriteSet, status ledger.Status) {
	for _, r := range ws.Records {
		r.Status = status
	}
}

func mergeMetadata(ws *ledger.WriteSet, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	for _, r := range ws.Records {
		if r.Metadata == nil {
			r.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			r.Metadata[k] = v
		}
	}
}

// validateAmount guards every money-moving command. Amounts are
// fixed-point with two decimal places; sub-cent precision would be
// rounded by the stores, leaving the response amount disagreeing with
// the booked one.
func validateAmount(amount decimal.Decimal) *shared.OpError {
	if !amount.IsPositive() {
		return shared.NewOpError(shared.CodeValidation, "amount must be positive")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return shared.NewOpError(shared.CodeValidation, "amount must have at most two decimal places")
	}
	return nil
}

// classifyBalanceError maps balance store errors to a terminal ledger
// status and the operation error surfaced to the caller.
func classifyBalanceError(err error) (ledger.Status, *shared.OpError) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return ledger.StatusFailedFunds, shared.NewOpError(shared.CodeInsufficientFunds, "insufficient funds")
	case errors.Is(err, wallet.ErrAccountNotFound{}):
		return ledger.StatusFailedAccount, shared.WrapOpError(shared.CodeNotFound, "account not found", err)
	case errors.Is(err, wallet.ErrGroupAccountNotFound{}):
		return ledger.StatusFailedAccount, shared.WrapOpError(shared.CodeNotFound, "group account not found", err)
	case errors.Is(err, wallet.ErrInvalidAmount):
		return ledger.StatusFailedUnknown, shared.NewOpError(shared.CodeValidation, "amount must be positive")
	default:
		return ledger.StatusFailedUnknown, shared.WrapOpError(shared.CodeInternal, "balance update failed", err)
	}
}
