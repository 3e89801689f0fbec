package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

// P2PCommand moves money between two wallet users, addressed by the
// recipient's phone number.
type P2PCommand struct {
	IdempotencyKey uuid.UUID
	SenderID       int64
	RecipientPhone string
	Amount         decimal.Decimal
}

// P2PTransfer runs the peer transfer saga: resolve the recipient, debit
// the sender, credit the recipient. A credit failure compensates by
// crediting the sender back; a failed compensation escalates.
func (o *Orchestrator) P2PTransfer(ctx context.Context, cmd P2PCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "p2p_transfer", "sender_id", cmd.SenderID)

	if opErr := validateAmount(cmd.Amount); opErr != nil {
		return nil, opErr
	}
	if cmd.RecipientPhone == "" {
		return nil, shared.NewOpError(shared.CodeValidation, "recipient phone number is required")
	}

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	recipientID, err := o.identity.ResolvePhone(ctx, cmd.RecipientPhone)
	if err != nil {
		if errors.Is(err, clients.ErrPhoneNotFound{}) {
			// Recorded as a failed attempt so support can see it; no
			// recipient leg exists because no recipient exists.
			tx := newRecord(recordSpec{
				ActingUserID: cmd.SenderID,
				Type:         ledger.TypeP2PSent,
				Amount:       cmd.Amount,
				SourceType:   ledger.WalletIndividual,
				SourceID:     userWalletID(cmd.SenderID),
				DestType:     ledger.WalletIndividual,
				DestID:       cmd.RecipientPhone,
			})
			tx.Status = ledger.StatusFailedAccount
			if aErr := o.ledger.Apply(ctx, ledger.NewWriteSet(tx)); aErr != nil {
				log.Error("Failed to record unresolved recipient attempt", "error", aErr)
			}
			return nil, shared.WrapOpError(shared.CodeNotFound, "no wallet user owns the recipient phone number", err)
		}
		return nil, shared.WrapOpError(shared.CodeCollaboratorUnavailable, "identity service unavailable", err)
	}

	if recipientID == cmd.SenderID {
		return nil, shared.NewOpError(shared.CodeValidation, "cannot transfer to yourself")
	}

	sent := newRecord(recordSpec{
		ActingUserID: cmd.SenderID,
		Type:         ledger.TypeP2PSent,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletIndividual,
		SourceID:     userWalletID(cmd.SenderID),
		DestType:     ledger.WalletIndividual,
		DestID:       userWalletID(recipientID),
	})
	received := newRecord(recordSpec{
		ActingUserID: recipientID,
		Type:         ledger.TypeP2PReceived,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletIndividual,
		SourceID:     userWalletID(cmd.SenderID),
		DestType:     ledger.WalletIndividual,
		DestID:       userWalletID(recipientID),
	})
	ws := ledger.NewWriteSet(sent, received)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	err = runSaga(ctx, log, []step{
		{
			name: "debit sender",
			run: func(ctx context.Context) error {
				_, err := o.accounts.Debit(ctx, cmd.SenderID, cmd.Amount)
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := o.accounts.Credit(ctx, cmd.SenderID, cmd.Amount)
				return err
			},
		},
		{
			name: "credit recipient",
			run: func(ctx context.Context) error {
				_, err := o.accounts.Credit(ctx, recipientID, cmd.Amount)
				return err
			},
		},
	})
	if err != nil {
		var compErr *compensationError
		if errors.As(err, &compErr) {
			return o.escalateIrreconcilable(ctx, log, ws, sent, compErr.Error())
		}
		status, opErr := classifyP2PError(err)
		return o.failTerminal(ctx, log, ws, sent, status, opErr)
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, sent, nil, metrics.P2PTransfersCompleted)
}

// classifyP2PError distinguishes sender-side failures (nothing moved yet)
// from recipient-side ones (compensated before reaching here).
func classifyP2PError(err error) (ledger.Status, *shared.OpError) {
	status, opErr := classifyBalanceError(err)
	if opErr.Code == shared.CodeInternal {
		// The recipient credit failed for an unexpected reason and the
		// sender was made whole again; tell the caller to retry later.
		return ledger.StatusFailedUnknown, shared.WrapOpError(shared.CodeCollaboratorUnavailable, "transfer could not be completed, funds returned to sender", err)
	}
	return status, opErr
}
