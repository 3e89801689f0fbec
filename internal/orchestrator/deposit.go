package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/metrics"
)

// DepositCommand tops up a user's wallet from an external funding source.
type DepositCommand struct {
	IdempotencyKey uuid.UUID
	UserID         int64
	Amount         decimal.Decimal
}

// Deposit credits the user's account and records a DEPOSIT transaction.
func (o *Orchestrator) Deposit(ctx context.Context, cmd DepositCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "deposit", "user_id", cmd.UserID)

	if opErr := validateAmount(cmd.Amount); opErr != nil {
		return nil, opErr
	}

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	tx := newRecord(recordSpec{
		ActingUserID: cmd.UserID,
		Type:         ledger.TypeDeposit,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletExternal,
		SourceID:     "external",
		DestType:     ledger.WalletIndividual,
		DestID:       userWalletID(cmd.UserID),
	})
	ws := ledger.NewWriteSet(tx)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	if _, err := o.accounts.Credit(ctx, cmd.UserID, cmd.Amount); err != nil {
		status, opErr := classifyBalanceError(err)
		return o.failTerminal(ctx, log, ws, tx, status, opErr)
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, tx, nil, metrics.DepositsCompleted)
}
