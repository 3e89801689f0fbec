package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/metrics"
)

// GroupWithdrawalCommand moves money from a group's shared wallet to a
// member's wallet, creating internal debt tracked by the group service.
type GroupWithdrawalCommand struct {
	IdempotencyKey uuid.UUID
	UserID         int64
	GroupID        int64
	Amount         decimal.Decimal
}

// GroupWithdrawal runs the withdrawal saga: debit the group, credit the
// member. The internal-balance decrement in the group service happens
// after the money has moved; if it fails, the withdrawal stands and the
// drift is escalated for reconciliation rather than unwound, because the
// member already holds the funds.
func (o *Orchestrator) GroupWithdrawal(ctx context.Context, cmd GroupWithdrawalCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "group_withdrawal", "user_id", cmd.UserID, "group_id", cmd.GroupID)

	if opErr := validateAmount(cmd.Amount); opErr != nil {
		return nil, opErr
	}

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	groupSide := newRecord(recordSpec{
		ActingUserID:  cmd.UserID,
		ActingGroupID: &cmd.GroupID,
		Type:          ledger.TypeGroupWithdrawal,
		Amount:        cmd.Amount,
		SourceType:    ledger.WalletGroup,
		SourceID:      groupWalletID(cmd.GroupID),
		DestType:      ledger.WalletIndividual,
		DestID:        userWalletID(cmd.UserID),
	})
	memberSide := newRecord(recordSpec{
		ActingUserID: cmd.UserID,
		Type:         ledger.TypeGroupWithdrawal,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletGroup,
		SourceID:     groupWalletID(cmd.GroupID),
		DestType:     ledger.WalletIndividual,
		DestID:       userWalletID(cmd.UserID),
	})
	ws := ledger.NewWriteSet(groupSide, memberSide)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	err := runSaga(ctx, log, []step{
		{
			name: "debit group",
			run: func(ctx context.Context) error {
				_, err := o.groupAccounts.Debit(ctx, cmd.GroupID, cmd.Amount)
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := o.groupAccounts.Credit(ctx, cmd.GroupID, cmd.Amount)
				return err
			},
		},
		{
			name: "credit member",
			run: func(ctx context.Context) error {
				_, err := o.accounts.Credit(ctx, cmd.UserID, cmd.Amount)
				return err
			},
		},
	})
	if err != nil {
		var compErr *compensationError
		if errors.As(err, &compErr) {
			return o.escalateIrreconcilable(ctx, log, ws, groupSide, compErr.Error())
		}
		status, opErr := classifyBalanceError(err)
		return o.failTerminal(ctx, log, ws, groupSide, status, opErr)
	}

	// The money has moved; a failed internal-balance decrement is drift
	// in the group's books, not grounds to claw the funds back.
	if err := o.groupLedger.AdjustMemberBalance(ctx, cmd.GroupID, cmd.UserID, cmd.Amount.Neg()); err != nil {
		o.escalate(ctx, log, groupSide, reconciliation.ReasonInternalBalanceDrift,
			"internal balance decrement failed after withdrawal: "+err.Error())
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, groupSide, nil, metrics.GroupWithdrawalsCompleted)
}
