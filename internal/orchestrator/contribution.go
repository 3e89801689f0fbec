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

// ContributionCommand moves money from a member's wallet into their
// group's shared wallet.
type ContributionCommand struct {
	IdempotencyKey uuid.UUID
	UserID         int64
	GroupID        int64
	Amount         decimal.Decimal
}

// Contribute runs the group contribution saga: debit the member, credit
// the group, then bump the member's internal balance in the group
// service. A failure after the debit unwinds everything back to the
// member.
func (o *Orchestrator) Contribute(ctx context.Context, cmd ContributionCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "contribution", "user_id", cmd.UserID, "group_id", cmd.GroupID)

	if opErr := validateAmount(cmd.Amount); opErr != nil {
		return nil, opErr
	}

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	sent := newRecord(recordSpec{
		ActingUserID: cmd.UserID,
		Type:         ledger.TypeContributionSent,
		Amount:       cmd.Amount,
		SourceType:   ledger.WalletIndividual,
		SourceID:     userWalletID(cmd.UserID),
		DestType:     ledger.WalletGroup,
		DestID:       groupWalletID(cmd.GroupID),
	})
	received := newRecord(recordSpec{
		ActingUserID:  cmd.UserID,
		ActingGroupID: &cmd.GroupID,
		Type:          ledger.TypeContributionReceived,
		Amount:        cmd.Amount,
		SourceType:    ledger.WalletIndividual,
		SourceID:      userWalletID(cmd.UserID),
		DestType:      ledger.WalletGroup,
		DestID:        groupWalletID(cmd.GroupID),
	})
	ws := ledger.NewWriteSet(sent, received)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	err := runSaga(ctx, log, []step{
		{
			name: "debit member",
			run: func(ctx context.Context) error {
				_, err := o.accounts.Debit(ctx, cmd.UserID, cmd.Amount)
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := o.accounts.Credit(ctx, cmd.UserID, cmd.Amount)
				return err
			},
		},
		{
			name: "credit group",
			run: func(ctx context.Context) error {
				_, err := o.groupAccounts.Credit(ctx, cmd.GroupID, cmd.Amount)
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := o.groupAccounts.Debit(ctx, cmd.GroupID, cmd.Amount)
				return err
			},
		},
		{
			name: "record internal balance",
			run: func(ctx context.Context) error {
				return o.groupLedger.AdjustMemberBalance(ctx, cmd.GroupID, cmd.UserID, cmd.Amount)
			},
		},
	})
	if err != nil {
		var compErr *compensationError
		if errors.As(err, &compErr) {
			return o.escalateIrreconcilable(ctx, log, ws, sent, compErr.Error())
		}
		status, opErr := classifyContributionError(err)
		return o.failTerminal(ctx, log, ws, sent, status, opErr)
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, sent, nil, metrics.ContributionsCompleted)
}

func classifyContributionError(err error) (ledger.Status, *shared.OpError) {
	if errors.Is(err, clients.ErrUnavailable) {
		return ledger.StatusFailedNetwork, shared.WrapOpError(shared.CodeCollaboratorUnavailable, "group service unavailable, contribution returned", err)
	}
	return classifyBalanceError(err)
}
