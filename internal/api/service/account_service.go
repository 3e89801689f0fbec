package service

import (
	"context"
	"errors"

	"github.com/pixel-money/wallet-core/internal/domain/wallet"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accounts      wallet.AccountRepository
	groupAccounts wallet.GroupAccountRepository
	loans         wallet.LoanRepository
}

// NewAccountService creates a new account service
func NewAccountService(
	accounts wallet.AccountRepository,
	groupAccounts wallet.GroupAccountRepository,
	loans wallet.LoanRepository,
) AccountService {
	return &AccountServiceImpl{
		accounts:      accounts,
		groupAccounts: groupAccounts,
		loans:         loans,
	}
}

// CreateAccount opens a zero-balance wallet for the user
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID int64) (*wallet.Account, error) {
	acc := wallet.NewAccount(userID)
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// GetBalance retrieves the user's wallet
func (s *AccountServiceImpl) GetBalance(ctx context.Context, userID int64) (*wallet.Account, error) {
	return s.accounts.GetByUserID(ctx, userID)
}

// DeleteAccount closes the user's wallet. Both a remaining balance and an
// active loan block deletion.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, userID int64) error {
	loan, err := s.loans.GetActiveByUserID(ctx, userID)
	if err == nil {
		return wallet.ErrOutstandingObligation{UserID: userID, Amount: loan.OutstandingBalance}
	}
	if !errors.Is(err, wallet.ErrNoActiveLoan{}) {
		return err
	}

	return s.accounts.Delete(ctx, userID)
}

// CreateGroupAccount opens a zero-balance shared wallet for the group
func (s *AccountServiceImpl) CreateGroupAccount(ctx context.Context, groupID int64) (*wallet.GroupAccount, error) {
	acc := wallet.NewGroupAccount(groupID)
	if err := s.groupAccounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// GetGroupBalance retrieves the group's shared wallet
func (s *AccountServiceImpl) GetGroupBalance(ctx context.Context, groupID int64) (*wallet.GroupAccount, error) {
	return s.groupAccounts.GetByGroupID(ctx, groupID)
}
