package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

// InboundTransferCommand is a transfer arriving from a partner bank. The
// partner's transaction id, not a client header, drives deduplication.
type InboundTransferCommand struct {
	OriginBank            string
	ExternalTransactionID string
	DestinationPhone      string
	Amount                decimal.Decimal
	Currency              string
	Description           string
}

// InboundKey derives the deterministic idempotency key for a partner
// transaction. The same partner id always yields the same key, so a
// partner retry replays instead of crediting twice.
func InboundKey(originBank, externalTransactionID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(originBank+":"+externalTransactionID))
}

// InboundTransfer credits a local user with money sent from a partner
// bank and records it as a DEPOSIT carrying the partner references.
func (o *Orchestrator) InboundTransfer(ctx context.Context, cmd InboundTransferCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "inbound_transfer", "origin_bank", cmd.OriginBank)

	if opErr := validateAmount(cmd.Amount); opErr != nil {
		return nil, opErr
	}
	if cmd.OriginBank == "" || cmd.ExternalTransactionID == "" {
		return nil, shared.NewOpError(shared.CodeValidation, "origin bank and external transaction id are required")
	}
	if cmd.Currency != "" && cmd.Currency != wallet.DefaultCurrency {
		return nil, shared.NewOpError(shared.CodeValidation, "unsupported currency: "+cmd.Currency)
	}

	key := InboundKey(cmd.OriginBank, cmd.ExternalTransactionID)
	if prior, ok, err := o.replay(ctx, log, key); err != nil || ok {
		return prior, err
	}

	recipientID, err := o.identity.ResolvePhone(ctx, cmd.DestinationPhone)
	if err != nil {
		if errors.Is(err, clients.ErrPhoneNotFound{}) {
			return nil, shared.WrapOpError(shared.CodeNotFound, "no wallet user owns the destination phone number", err)
		}
		return nil, shared.WrapOpError(shared.CodeCollaboratorUnavailable, "identity service unavailable", err)
	}

	tx := newRecord(recordSpec{
		ActingUserID: recipientID,
		Type:         ledger.TypeDeposit,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletExternalBank,
		SourceID:     cmd.OriginBank,
		DestType:     ledger.WalletIndividual,
		DestID:       userWalletID(recipientID),
		Metadata: map[string]string{
			"origin_bank":             cmd.OriginBank,
			"external_transaction_id": cmd.ExternalTransactionID,
		},
	})
	ws := ledger.NewWriteSet(tx)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	if _, err := o.accounts.Credit(ctx, recipientID, cmd.Amount); err != nil {
		status, opErr := classifyBalanceError(err)
		return o.failTerminal(ctx, log, ws, tx, status, opErr)
	}

	return o.complete(ctx, log, key, ws, tx, nil, metrics.InboundTransfersCompleted)
}
