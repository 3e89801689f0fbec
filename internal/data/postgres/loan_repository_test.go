package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixel-money/wallet-core/internal/domain/wallet"
)

func testLoan(t *testing.T) *wallet.Loan {
	t.Helper()
	loan, err := wallet.NewLoan(42, decimal.NewFromInt(1000), decimal.NewFromFloat(0.05), 30*24*time.Hour)
	require.NoError(t, err)
	return loan
}

func TestLoanRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	loan := testLoan(t)

	query := `
		INSERT INTO loans \(id, user_id, principal_amount, outstanding_balance, interest_rate, status, created_at, due_date\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(loan.ID, loan.UserID, loan.PrincipalAmount, loan.OutstandingBalance, loan.InterestRate, loan.Status, loan.CreatedAt, loan.DueDate).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, loan)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("active loan already exists", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(loan.ID, loan.UserID, loan.PrincipalAmount, loan.OutstandingBalance, loan.InterestRate, loan.Status, loan.CreatedAt, loan.DueDate).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, loan)
		assert.ErrorIs(t, err, wallet.ErrActiveLoanExists{UserID: 42})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_GetActiveByUserID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	loan := testLoan(t)

	query := `
		SELECT id, user_id, principal_amount, outstanding_balance, interest_rate, status, created_at, due_date
		FROM loans
		WHERE user_id = \$1 AND status = 'ACTIVE'
	`

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "user_id", "principal_amount", "outstanding_balance", "interest_rate", "status", "created_at", "due_date"}).
			AddRow(loan.ID, loan.UserID, loan.PrincipalAmount, loan.OutstandingBalance, loan.InterestRate, loan.Status, loan.CreatedAt, loan.DueDate)
		mock.ExpectQuery(query).
			WithArgs(int64(42)).
			WillReturnRows(rows)

		got, err := repo.GetActiveByUserID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, loan.ID, got.ID)
		assert.True(t, got.OutstandingBalance.Equal(decimal.NewFromInt(1050)))
		assert.Equal(t, wallet.LoanStatusActive, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no active loan", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(9)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetActiveByUserID(ctx, 9)
		assert.ErrorIs(t, err, wallet.ErrNoActiveLoan{UserID: 9})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_MarkPaid(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	loan := testLoan(t)

	query := `
		UPDATE loans
		SET status = 'PAID', outstanding_balance = 0
		WHERE id = \$1 AND status = 'ACTIVE'
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(loan.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkPaid(ctx, loan.ID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already settled", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(loan.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkPaid(ctx, loan.ID)
		assert.ErrorIs(t, err, wallet.ErrNoActiveLoan{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	loan := testLoan(t)

	query := `
		DELETE FROM loans
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(loan.ID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.Delete(ctx, loan.ID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing loan", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(loan.ID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, loan.ID)
		assert.ErrorIs(t, err, wallet.ErrNoActiveLoan{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
