package orchestrator

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

func transferCommand(amount int64) TransferCommand {
	return TransferCommand{
		IdempotencyKey:   uuid.New(),
		UserID:           1,
		DestinationBank:  "HAPPY_MONEY",
		DestinationPhone: "987654321",
		Amount:           decimal.NewFromInt(amount),
		Description:      "rent",
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("debits after acceptance and records the remote id", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		env.bank.transferFn = func(req *clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error) {
			return &clients.InterbankAcceptance{Status: "ACCEPTED", RemoteTransactionID: "HAPPY-42"}, nil
		}

		tx, err := env.orch.Transfer(ctx, transferCommand(200))
		require.NoError(t, err)

		assert.Equal(t, ledger.StatusCompleted, tx.Status)
		assert.Equal(t, "HAPPY-42", tx.Metadata["remote_transaction_id"])
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(300)))
		assert.Equal(t, int64(1), env.registry.Get(metrics.TransfersCompleted))

		require.Len(t, env.bank.requests, 1)
		sent := env.bank.requests[0]
		assert.Equal(t, OriginBank, sent.OriginBank)
		assert.Equal(t, "HAPPY_MONEY", sent.DestinationBank)
		assert.Equal(t, "987654321", sent.DestinationPhoneNumber)
		assert.Equal(t, tx.ID.String(), sent.TransactionID)
	})

	t.Run("insufficient funds fails before the bank is involved", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(100))

		tx, err := env.orch.Transfer(ctx, transferCommand(200))
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeInsufficientFunds})

		assert.Empty(t, env.bank.requests)
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(100)))
		assert.Equal(t, int64(1), env.registry.Get(metrics.TransfersFailed))

		txs, lErr := env.ledger.ListByUser(ctx, 1, 10)
		require.NoError(t, lErr)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.StatusFailedFunds, txs[0].Status)
	})

	t.Run("bank limit rejection maps to a funds failure", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		env.bank.transferFn = func(*clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error) {
			return nil, &clients.RejectionError{StatusCode: http.StatusBadRequest, Code: "AMOUNT_LIMIT_EXCEEDED", Detail: "over the limit"}
		}

		_, err := env.orch.Transfer(ctx, transferCommand(200))
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeCollaboratorRejected})

		txs, lErr := env.ledger.ListByUser(ctx, 1, 10)
		require.NoError(t, lErr)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.StatusFailedFunds, txs[0].Status)
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(500)))
	})

	t.Run("unknown destination maps to an account failure", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		env.bank.transferFn = func(*clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error) {
			return nil, &clients.RejectionError{StatusCode: http.StatusNotFound, Code: "ACCOUNT_NOT_FOUND", Detail: "no such account"}
		}

		_, err := env.orch.Transfer(ctx, transferCommand(200))
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeCollaboratorRejected})

		txs, lErr := env.ledger.ListByUser(ctx, 1, 10)
		require.NoError(t, lErr)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.StatusFailedAccount, txs[0].Status)
	})

	t.Run("unreachable bank maps to a network failure", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		env.bank.transferFn = func(*clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error) {
			return nil, clients.ErrUnavailable
		}

		_, err := env.orch.Transfer(ctx, transferCommand(200))
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeCollaboratorUnavailable})

		txs, lErr := env.ledger.ListByUser(ctx, 1, 10)
		require.NoError(t, lErr)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.StatusFailedNetwork, txs[0].Status)
		assert.True(t, env.accounts.balance(1).Equal(decimal.NewFromInt(500)))
	})

	t.Run("debit failure after acceptance escalates for reconciliation", func(t *testing.T) {
		env := newTestEnv()
		env.accounts.seed(1, decimal.NewFromInt(500))
		// The balance drains between the advisory check and the debit.
		env.bank.transferFn = func(*clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error) {
			_, err := env.accounts.Debit(ctx, 1, decimal.NewFromInt(450))
			require.NoError(t, err)
			return &clients.InterbankAcceptance{Status: "ACCEPTED", RemoteTransactionID: "HAPPY-9"}, nil
		}

		tx, err := env.orch.Transfer(ctx, transferCommand(200))
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeNeedsReconciliation})

		txs, lErr := env.ledger.ListByUser(ctx, 1, 10)
		require.NoError(t, lErr)
		require.Len(t, txs, 1)
		assert.Equal(t, ledger.StatusNeedsReconciliation, txs[0].Status)
		assert.Equal(t, "HAPPY-9", txs[0].Metadata["remote_transaction_id"])
		assert.Equal(t, []reconciliation.Reason{reconciliation.ReasonCompensationFailed}, env.escalations.reasons())
		assert.Equal(t, int64(1), env.registry.Get(metrics.TransfersFailed))
	})

	t.Run("requires a destination", func(t *testing.T) {
		env := newTestEnv()
		cmd := transferCommand(100)
		cmd.DestinationBank = ""

		_, err := env.orch.Transfer(ctx, cmd)
		assert.ErrorIs(t, err, &shared.OpError{Code: shared.CodeValidation})
		assert.Equal(t, 0, env.ledger.count())
	})
}
