package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
	"github.com/pixel-money/wallet-core/internal/orchestrator"
)

// AccountService defines the interface for wallet account operations
type AccountService interface {
	// CreateAccount opens a zero-balance wallet for the user
	// Returns ErrAccountAlreadyExists if the user already has one
	CreateAccount(ctx context.Context, userID int64) (*wallet.Account, error)

	// GetBalance retrieves the user's wallet
	// Returns ErrAccountNotFound if no wallet exists
	GetBalance(ctx context.Context, userID int64) (*wallet.Account, error)

	// DeleteAccount closes the user's wallet
	// Returns ErrOutstandingObligation while money or debt remains
	DeleteAccount(ctx context.Context, userID int64) error

	// CreateGroupAccount opens a zero-balance shared wallet for the group
	CreateGroupAccount(ctx context.Context, groupID int64) (*wallet.GroupAccount, error)

	// GetGroupBalance retrieves the group's shared wallet
	GetGroupBalance(ctx context.Context, groupID int64) (*wallet.GroupAccount, error)
}

// TransactionService defines the money-moving operations and ledger reads
// exposed over HTTP. The orchestrator implements it.
type TransactionService interface {
	Deposit(ctx context.Context, cmd orchestrator.DepositCommand) (*ledger.Transaction, error)
	Transfer(ctx context.Context, cmd orchestrator.TransferCommand) (*ledger.Transaction, error)
	P2PTransfer(ctx context.Context, cmd orchestrator.P2PCommand) (*ledger.Transaction, error)
	Contribute(ctx context.Context, cmd orchestrator.ContributionCommand) (*ledger.Transaction, error)
	GroupWithdrawal(ctx context.Context, cmd orchestrator.GroupWithdrawalCommand) (*ledger.Transaction, error)
	InboundTransfer(ctx context.Context, cmd orchestrator.InboundTransferCommand) (*ledger.Transaction, error)
	DisburseLoan(ctx context.Context, cmd orchestrator.LoanDisbursementCommand) (*ledger.Transaction, error)
	PayLoan(ctx context.Context, cmd orchestrator.LoanPaymentCommand) (*ledger.Transaction, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)
	ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*ledger.Transaction, error)
	ListGroupTransactions(ctx context.Context, groupID int64, limit int) ([]*ledger.Transaction, error)
	DailyBalances(ctx context.Context, userID int64, days int) ([]orchestrator.DailyBalance, error)
}

var _ TransactionService = (*orchestrator.Orchestrator)(nil)
