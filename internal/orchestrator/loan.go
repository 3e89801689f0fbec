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
)

// LoanDisbursementCommand requests a loan paid into the user's wallet.
type LoanDisbursementCommand struct {
	IdempotencyKey uuid.UUID
	UserID         int64
	Principal      decimal.Decimal
}

// LoanPaymentCommand settles the user's active loan in full.
type LoanPaymentCommand struct {
	IdempotencyKey uuid.UUID
	UserID         int64
}

// DisburseLoan creates an interest-bearing loan and credits the borrower.
// A user may hold at most one active loan; the partial unique index on
// the loans table backs the check against races.
func (o *Orchestrator) DisburseLoan(ctx context.Context, cmd LoanDisbursementCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "loan_disbursement", "user_id", cmd.UserID)

	if opErr := validateAmount(cmd.Principal); opErr != nil {
		return nil, opErr
	}
	if cmd.Principal.GreaterThan(o.loanCfg.MaxPrincipal) {
		return nil, shared.NewOpError(shared.CodeValidation,
			"principal exceeds the maximum of "+o.loanCfg.MaxPrincipal.StringFixed(2))
	}

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	if _, err := o.loans.GetActiveByUserID(ctx, cmd.UserID); err == nil {
		return nil, shared.NewOpError(shared.CodeConflict, "user already has an active loan")
	} else if !errors.Is(err, wallet.ErrNoActiveLoan{}) {
		return nil, shared.WrapOpError(shared.CodeInternal, "failed to check for an active loan", err)
	}

	loan, err := wallet.NewLoan(cmd.UserID, cmd.Principal, o.loanCfg.InterestRate, o.loanCfg.Term)
	if err != nil {
		return nil, shared.WrapOpError(shared.CodeValidation, "invalid loan principal", err)
	}

	tx := newRecord(recordSpec{
		ActingUserID: cmd.UserID,
		Type:         ledger.TypeLoanDisbursement,
		Amount:       cmd.Principal,
		SourceType:   ledger.WalletLoanVault,
		SourceID:     "loan_vault",
		DestType:     ledger.WalletIndividual,
		DestID:       userWalletID(cmd.UserID),
		Metadata: map[string]string{
			"loan_id":             loan.ID.String(),
			"outstanding_balance": loan.OutstandingBalance.StringFixed(2),
		},
	})
	ws := ledger.NewWriteSet(tx)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	err = runSaga(ctx, log, []step{
		{
			name: "create loan",
			run: func(ctx context.Context) error {
				return o.loans.Create(ctx, loan)
			},
			compensate: func(ctx context.Context) error {
				return o.loans.Delete(ctx, loan.ID)
			},
		},
		{
			name: "credit borrower",
			run: func(ctx context.Context) error {
				_, err := o.accounts.Credit(ctx, cmd.UserID, cmd.Principal)
				return err
			},
		},
	})
	if err != nil {
		var compErr *compensationError
		if errors.As(err, &compErr) {
			return o.escalateIrreconcilable(ctx, log, ws, tx, compErr.Error())
		}
		if errors.As(err, new(wallet.ErrActiveLoanExists)) {
			return o.failTerminal(ctx, log, ws, tx, ledger.StatusFailedUnknown,
				shared.NewOpError(shared.CodeConflict, "user already has an active loan"))
		}
		status, opErr := classifyBalanceError(err)
		return o.failTerminal(ctx, log, ws, tx, status, opErr)
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, tx, nil, metrics.LoansDisbursed)
}

// PayLoan debits the full outstanding balance and marks the loan PAID.
// There are no partial payments.
func (o *Orchestrator) PayLoan(ctx context.Context, cmd LoanPaymentCommand) (*ledger.Transaction, error) {
	log := o.logger.With("operation", "loan_payment", "user_id", cmd.UserID)

	if prior, ok, err := o.replay(ctx, log, cmd.IdempotencyKey); err != nil || ok {
		return prior, err
	}

	loan, err := o.loans.GetActiveByUserID(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, wallet.ErrNoActiveLoan{}) {
			return nil, shared.WrapOpError(shared.CodeNotFound, "no active loan to pay", err)
		}
		return nil, shared.WrapOpError(shared.CodeInternal, "failed to load the active loan", err)
	}

	tx := newRecord(recordSpec{
		ActingUserID: cmd.UserID,
		Type:         ledger.TypeLoanPayment,
		Amount:       loan.OutstandingBalance,
		SourceType:   ledger.WalletIndividual,
		SourceID:     userWalletID(cmd.UserID),
		DestType:     ledger.WalletLoanVault,
		DestID:       "loan_vault",
		Metadata: map[string]string{
			"loan_id": loan.ID.String(),
		},
	})
	ws := ledger.NewWriteSet(tx)

	if err := o.applyPending(ctx, ws); err != nil {
		return nil, err
	}

	err = runSaga(ctx, log, []step{
		{
			name: "debit outstanding balance",
			run: func(ctx context.Context) error {
				_, err := o.accounts.Debit(ctx, cmd.UserID, loan.OutstandingBalance)
				return err
			},
			compensate: func(ctx context.Context) error {
				_, err := o.accounts.Credit(ctx, cmd.UserID, loan.OutstandingBalance)
				return err
			},
		},
		{
			name: "mark loan paid",
			run: func(ctx context.Context) error {
				return o.loans.MarkPaid(ctx, loan.ID)
			},
		},
	})
	if err != nil {
		var compErr *compensationError
		if errors.As(err, &compErr) {
			return o.escalateIrreconcilable(ctx, log, ws, tx, compErr.Error())
		}
		status, opErr := classifyBalanceError(err)
		return o.failTerminal(ctx, log, ws, tx, status, opErr)
	}

	return o.complete(ctx, log, cmd.IdempotencyKey, ws, tx, nil, metrics.LoansPaid)
}
