package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixel-money/wallet-core/internal/domain/wallet"
)

const groupSelectForUpdateQuery = `
		SELECT group_id, balance, currency, version, created_at, updated_at
		FROM group_accounts
		WHERE group_id = \$1
		FOR UPDATE
	`

const groupUpdateBalanceQuery = `
		UPDATE group_accounts
		SET balance = \$1, version = \$2, updated_at = \$3
		WHERE group_id = \$4 AND version = \$5
	`

func groupAccountRows(groupID int64, balance decimal.Decimal, version int64, at time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"group_id", "balance", "currency", "version", "created_at", "updated_at"}).
		AddRow(groupID, balance, "PEN", version, at, at)
}

func TestGroupAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &GroupAccountRepository{querier: mock, logger: logger}

	acc := wallet.NewGroupAccount(77)

	query := `
		INSERT INTO group_accounts \(group_id, balance, currency, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)
		ON CONFLICT \(group_id\) DO NOTHING
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.GroupID, acc.Balance, acc.Currency, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.GroupID, acc.Balance, acc.Currency, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err := repo.Create(ctx, acc)
		assert.ErrorIs(t, err, wallet.ErrGroupAccountAlreadyExists{GroupID: 77})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGroupAccountRepository_GetByGroupID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &GroupAccountRepository{querier: mock, logger: logger}
	now := time.Now()

	query := `
		SELECT group_id, balance, currency, version, created_at, updated_at
		FROM group_accounts
		WHERE group_id = \$1
	`

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(77)).
			WillReturnRows(groupAccountRows(77, decimal.NewFromInt(500), 2, now))

		acc, err := repo.GetByGroupID(ctx, 77)
		require.NoError(t, err)
		assert.Equal(t, int64(77), acc.GroupID)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(500)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(88)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByGroupID(ctx, 88)
		assert.ErrorIs(t, err, wallet.ErrGroupAccountNotFound{GroupID: 88})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGroupAccountRepository_Credit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &GroupAccountRepository{querier: mock, beginner: mock, logger: logger}
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(groupSelectForUpdateQuery).
			WithArgs(int64(77)).
			WillReturnRows(groupAccountRows(77, decimal.NewFromInt(500), 2, now))
		mock.ExpectExec(groupUpdateBalanceQuery).
			WithArgs(pgxmock.AnyArg(), int64(3), pgxmock.AnyArg(), int64(77), int64(2)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()
		mock.ExpectRollback() // Deferred rollback after commit is a no-op

		acc, err := repo.Credit(ctx, 77, decimal.NewFromInt(200))
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(700)))
		assert.Equal(t, int64(3), acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("group not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(groupSelectForUpdateQuery).
			WithArgs(int64(88)).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.Credit(ctx, 88, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, wallet.ErrGroupAccountNotFound{GroupID: 88})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGroupAccountRepository_Debit(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &GroupAccountRepository{querier: mock, beginner: mock, logger: logger}
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(groupSelectForUpdateQuery).
			WithArgs(int64(77)).
			WillReturnRows(groupAccountRows(77, decimal.NewFromInt(500), 1, now))
		mock.ExpectExec(groupUpdateBalanceQuery).
			WithArgs(pgxmock.AnyArg(), int64(2), pgxmock.AnyArg(), int64(77), int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()
		mock.ExpectRollback()

		acc, err := repo.Debit(ctx, 77, decimal.NewFromInt(300))
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(200)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(groupSelectForUpdateQuery).
			WithArgs(int64(77)).
			WillReturnRows(groupAccountRows(77, decimal.NewFromInt(100), 1, now))
		mock.ExpectRollback()

		_, err := repo.Debit(ctx, 77, decimal.NewFromInt(300))
		assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
