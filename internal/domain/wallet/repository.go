package wallet

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository defines individual account persistence operations.
// Credit and Debit run as serialized critical sections: row lock, validate,
// write. Never hold the lock across a remote call.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByUserID(ctx context.Context, userID int64) (*Account, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (*Account, error)
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) (*Account, error)
	Delete(ctx context.Context, userID int64) error

	// LockForUpdate acquires a pessimistic lock inside an open transaction
	LockForUpdate(ctx context.Context, userID int64) (*Account, error)
	WithTx(tx pgx.Tx) AccountRepository
}

// GroupAccountRepository mirrors AccountRepository for shared group wallets.
type GroupAccountRepository interface {
	Create(ctx context.Context, account *GroupAccount) error
	GetByGroupID(ctx context.Context, groupID int64) (*GroupAccount, error)
	Credit(ctx context.Context, groupID int64, amount decimal.Decimal) (*GroupAccount, error)
	Debit(ctx context.Context, groupID int64, amount decimal.Decimal) (*GroupAccount, error)

	LockForUpdate(ctx context.Context, groupID int64) (*GroupAccount, error)
	WithTx(tx pgx.Tx) GroupAccountRepository
}

// LoanRepository defines loan persistence operations.
type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) error
	GetActiveByUserID(ctx context.Context, userID int64) (*Loan, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrAccountNotFound indicates a missing individual account
type ErrAccountNotFound struct {
	UserID int64
}

func (e ErrAccountNotFound) Error() string {
	return "account not found for user: " + strconv.FormatInt(e.UserID, 10)
}

// Is matches any ErrAccountNotFound when the target carries a zero user id
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.UserID == 0 || e.UserID == t.UserID
}

// ErrGroupAccountNotFound indicates a missing group account
type ErrGroupAccountNotFound struct {
	GroupID int64
}

func (e ErrGroupAccountNotFound) Error() string {
	return "group account not found: " + strconv.FormatInt(e.GroupID, 10)
}

// Is matches any ErrGroupAccountNotFound when the target carries a zero group id
func (e ErrGroupAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrGroupAccountNotFound)
	if !ok {
		return false
	}
	return t.GroupID == 0 || e.GroupID == t.GroupID
}

// ErrAccountAlreadyExists indicates duplicate account creation
type ErrAccountAlreadyExists struct {
	UserID int64
}

func (e ErrAccountAlreadyExists) Error() string {
	return "account already exists for user: " + strconv.FormatInt(e.UserID, 10)
}

// ErrGroupAccountAlreadyExists indicates duplicate group account creation
type ErrGroupAccountAlreadyExists struct {
	GroupID int64
}

func (e ErrGroupAccountAlreadyExists) Error() string {
	return "group account already exists: " + strconv.FormatInt(e.GroupID, 10)
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	UserID int64
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for user: " + strconv.FormatInt(e.UserID, 10)
}

// ErrOutstandingObligation blocks account deletion while money or debt remains
type ErrOutstandingObligation struct {
	UserID int64
	Amount decimal.Decimal
}

func (e ErrOutstandingObligation) Error() string {
	return "user " + strconv.FormatInt(e.UserID, 10) + " has an outstanding obligation of " + e.Amount.StringFixed(2)
}

// ErrNoActiveLoan indicates the user has no loan to pay
type ErrNoActiveLoan struct {
	UserID int64
}

func (e ErrNoActiveLoan) Error() string {
	return "no active loan for user: " + strconv.FormatInt(e.UserID, 10)
}

// Is matches any ErrNoActiveLoan when the target carries a zero user id
func (e ErrNoActiveLoan) Is(target error) bool {
	t, ok := target.(ErrNoActiveLoan)
	if !ok {
		return false
	}
	return t.UserID == 0 || e.UserID == t.UserID
}

// ErrActiveLoanExists blocks a second concurrent loan
type ErrActiveLoanExists struct {
	UserID int64
}

func (e ErrActiveLoanExists) Error() string {
	return "user already has an active loan: " + strconv.FormatInt(e.UserID, 10)
}
