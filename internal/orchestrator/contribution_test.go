package orchestrator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

func TestContribute(t *testing.T) {
	ctx := context.Background()

	t.Run("moves money into the group and records the member share", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		env.groups.seed(77, decimal.NewFromInt(1000))

		tx, err := env.orch.Contribute(ctx, ContributionCommand{
			IdempotencyKey: uuid.New(),
			UserID:         1,
			GroupID:        77,
			Amount:         decimal.NewFromInt(200),
		})
		require.NoError(t, err)

		assert.Equal(t, ledger.TypeContributionSent, tx.Type)
		assert.Equal(t, ledger.StatusCompleted, tx.Status)
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(300)))
		assert.True(t, env.groups.balance(77).Equal(decimal.NewFromInt(1200)))

		// The group service saw a positive share adjustment.
		require.Len(t, env.groupLedger.adjustments, 1)
		adj := env.groupLedger.adjustments[0]
		assert.Equal(t, int64(77), adj.GroupID)
		assert.Equal(t, int64(1), adj.UserID)
		assert.True(t, adj.Delta.Equal(decimal.NewFromInt(200)))

		// The group-side leg carries the acting group.
		grpTxs, lErr := env.ledger.ListByGroup(ctx, 77, 10)
		require.NoError(t, lErr)
		require.Len(t, grpTxs, 1)
		assert.Equal(t, ledger.TypeContributionReceived, grpTxs[0].Type)
		assert.Equal(t, ledger.StatusCompleted, grpTxs[0].Status)

		assert.Equal(t, int64(1), env.registry.Get(metrics.ContributionsCompleted))
	})

	t.Run("insufficient member funds fails cleanly", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(100))
		env.groups.seed(77, decimal.NewFromInt(1000))

		_, err := env.orch.Contribute(ctx, ContributionCommand{
			IdempotencyKey: uuid.New(),
			UserID:         1,
			GroupID:        77,
			Amount:         decimal.NewFromInt(200),
		})
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeInsufficientFunds})

		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(100)))
		assert.True(t, env.groups.balance(77).Equal(decimal.NewFromInt(1000)))
		assert.Empty(t, env.groupLedger.adjustments)
	})

	t.Run("group service outage unwinds both movements", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		env.groups.seed(77, decimal.NewFromInt(1000))
		env.groupLedger.err = clients.ErrUnavailable

		_, err := env.orch.Contribute(ctx, ContributionCommand{
			IdempotencyKey: uuid.New(),
			UserID:         1,
			GroupID:        77,
			Amount:         decimal.NewFromInt(200),
		})
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeCollaboratorUnavailable})

		// Both compensations ran: the member and the group are whole again.
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(500)))
		assert.True(t, env.groups.balance(77).Equal(decimal.NewFromInt(1000)))

		txs, lErr := env.ledger.ListByUser(ctx, 1, 10)
		require.NoError(t, lErr)
		require.Len(t, txs, 2)
		for _, tx := range txs {
			assert.Equal(t, ledger.StatusFailedNetwork, tx.Status)
		}
	})

	t.Run("missing group account refunds the member", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))

		_, err := env.orch.Contribute(ctx, ContributionCommand{
			IdempotencyKey: uuid.New(),
			UserID:         1,
			GroupID:        88,
			Amount:         decimal.NewFromInt(200),
		})
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeNotFound})
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(500)))
	})
}
