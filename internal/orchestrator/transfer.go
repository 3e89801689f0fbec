package orchestrator

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

// TransferCommand sends money to an account at a partner bank.
type TransferCommand struct {
	IdempotencyKey   uuid.UUID
	UserID           int64
	DestinationBank  string
	DestinationPhone string
	Amount           decimal.Decimal
	Description      string
}

// Transfer runs the external transfer saga. The bank is asked to accept
// the transfer before any debit: an acceptance cannot be recalled, so the
// debit must be the step that can still fail safely. A debit failure after
// acceptance leaves real money drift and is escalated.
func (o *Orchestrator) Transfer(ctx context.Context, cmd TransferCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "transfer", "user_id", cmd.UserID, "destination_bank", cmd.DestinationBank)

	if opErr := validateAmount(cmd.Amount); opErr != nil {
		return nil, opErr
	}
	if cmd.DestinationBank == "" || cmd.DestinationPhone == "" {
		return nil, shared.NewOpError(shared.CodeValidation, "destination bank and phone number are required")
	}

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	tx := newRecord(recordSpec{
		ActingUserID: cmd.UserID,
		Type:         ledger.TypeTransfer,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletIndividual,
		SourceID:     userWalletID(cmd.UserID),
		DestType:     ledger.WalletExternalBank,
		DestID:       cmd.DestinationBank,
		Metadata: map[string]string{
			"destination_phone": cmd.DestinationPhone,
		},
	})
	ws := ledger.NewWriteSet(tx)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	// Advisory funds check before involving the bank. The debit below
	// revalidates under the row lock.
	account, err := o.accounts.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		o.metrics.Inc(metrics.TransfersFailed)
		status, opErr := classifyBalanceError(err)
		return o.failTerminal(ctx, log, ws, tx, status, opErr)
	}
	if !account.HasFunds(cmd.Amount) {
		o.metrics.Inc(metrics.TransfersFailed)
		return o.failTerminal(ctx, log, ws, tx, ledger.StatusFailedFunds,
			shared.NewOpError(shared.CodeInsufficientFunds, "insufficient funds"))
	}

	acceptance, err := o.bank.Transfer(ctx, &clients.InterbankTransferRequest{
		OriginBank:             OriginBank,
		OriginAccountID:        userWalletID(cmd.UserID),
		DestinationBank:        cmd.DestinationBank,
		DestinationPhoneNumber: cmd.DestinationPhone,
		Amount:                 cmd.Amount,
		Currency:               tx.Currency,
		TransactionID:          tx.ID.String(),
		Description:            cmd.Description,
	})
	if err != nil {
		o.metrics.Inc(metrics.TransfersFailed)
		status, opErr := classifyBankError(err)
		return o.failTerminal(ctx, log, ws, tx, status, opErr)
	}

	if _, err := o.accounts.Debit(ctx, cmd.UserID, cmd.Amount); err != nil {
		// The bank already accepted; the user's balance no longer covers
		// the amount that left. Only the reconciler can settle this.
		o.metrics.Inc(metrics.TransfersFailed)
		if fErr := o.ledger.Finalize(ctx, ws.IDs(), ledger.StatusNeedsReconciliation, map[string]string{
			"remote_transaction_id": acceptance.RemoteTransactionID,
		}); fErr != nil {
			log.Error("Failed to mark transfer for reconciliation", "transaction_id", tx.ID.String(), "error", fErr)
		}
		setStatus(ws, ledger.StatusNeedsReconciliation)
		o.escalate(ctx, log, tx, reconciliation.ReasonCompensationFailed,
			"debit failed after interbank acceptance: "+err.Error())
		return nil, shared.NewOpError(shared.CodeNeedsReconciliation, "transfer accepted by the partner bank but the debit failed; escalated for reconciliation")
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, tx, map[string]string{
		"remote_transaction_id": acceptance.RemoteTransactionID,
	}, metrics.TransfersCompleted)
}

// classifyBankError maps interbank client errors to a terminal ledger
// status and the operation error surfaced to the caller.
func classifyBankError(err error) (ledger.Status, *shared.OpError) {
	var rejection *clients.RejectionError
	if errors.As(err, &rejection) {
		switch rejection.StatusCode {
		case http.StatusBadRequest:
			return ledger.StatusFailedFunds, shared.WrapOpError(shared.CodeCollaboratorRejected, rejection.Detail, err)
		case http.StatusNotFound, http.StatusForbidden:
			return ledger.StatusFailedAccount, shared.WrapOpError(shared.CodeCollaboratorRejected, rejection.Detail, err)
		default:
			return ledger.StatusFailedUnknown, shared.WrapOpError(shared.CodeCollaboratorRejected, rejection.Detail, err)
		}
	}
	if errors.Is(err, clients.ErrUnavailable) {
		return ledger.StatusFailedNetwork, shared.WrapOpError(shared.CodeCollaboratorUnavailable, "partner bank unavailable", err)
	}
	return ledger.StatusFailedUnknown, shared.WrapOpError(shared.CodeInternal, "interbank transfer failed", err)
}
