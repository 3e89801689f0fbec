package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pixel-money/wallet-core/internal/domain/wallet"
	"github.com/pixel-money/wallet-core/internal/platform/persistence"
)

// LoanRepository implements wallet.LoanRepository for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLoanRepository creates a new PostgreSQL loan repository.
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.LoanRepository {
	return &LoanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a new loan. A partial unique index on (user_id) WHERE
// status = 'ACTIVE' backs the one-active-loan rule.
func (r *LoanRepository) Create(ctx context.Context, loan *wallet.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, principal_amount, outstanding_balance, interest_rate, status, created_at, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		loan.ID,
		loan.UserID,
		loan.PrincipalAmount,
		loan.OutstandingBalance,
		loan.InterestRate,
		loan.Status,
		loan.CreatedAt,
		loan.DueDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return wallet.ErrActiveLoanExists{UserID: loan.UserID}
		}
		r.logger.Error("Failed to create loan", "user_id", loan.UserID, "error", err)
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetActiveByUserID retrieves the user's ACTIVE loan, if any
func (r *LoanRepository) GetActiveByUserID(ctx context.Context, userID int64) (*wallet.Loan, error) {
	query := `
		SELECT id, user_id, principal_amount, outstanding_balance, interest_rate, status, created_at, due_date
		FROM loans
		WHERE user_id = $1 AND status = 'ACTIVE'
	`

	var loan wallet.Loan
	err := r.querier.QueryRow(ctx, query, userID).Scan(
		&loan.ID,
		&loan.UserID,
		&loan.PrincipalAmount,
		&loan.OutstandingBalance,
		&loan.InterestRate,
		&loan.Status,
		&loan.CreatedAt,
		&loan.DueDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrNoActiveLoan{UserID: userID}
		}
		r.logger.Error("Failed to get active loan", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get active loan: %w", err)
	}

	return &loan, nil
}

// MarkPaid settles a loan in full.
func (r *LoanRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE loans
		SET status = 'PAID', outstanding_balance = 0
		WHERE id = $1 AND status = 'ACTIVE'
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to mark loan paid", "loan_id", id.String(), "error", err)
		return fmt.Errorf("failed to mark loan paid: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrNoActiveLoan{}
	}

	return nil
}

// Delete removes a loan. Used as the compensating action when the
// disbursement credit fails after the loan row was created.
func (r *LoanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM loans
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete loan", "loan_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrNoActiveLoan{}
	}

	return nil
}
