package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
)

// CreateAccountRequest opens a wallet for the authenticated user.
type CreateAccountRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// CreateGroupAccountRequest opens a shared wallet for a group.
type CreateGroupAccountRequest struct {
	GroupID int64 `json:"group_id" binding:"required,gt=0"`
}

// BalanceResponse represents a wallet balance in API responses
type BalanceResponse struct {
	OwnerID   int64           `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt string          `json:"updated_at"`
}

// DepositRequest tops up the caller's wallet
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// TransferRequest sends money to a partner bank account
type TransferRequest struct {
	DestinationBank  string          `json:"destination_bank" binding:"required"`
	DestinationPhone string          `json:"destination_phone" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	Description      string          `json:"description,omitempty"`
}

// P2PRequest sends money to another wallet user by phone number
type P2PRequest struct {
	RecipientPhone string          `json:"recipient_phone" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
}

// ContributionRequest moves money into the caller's group wallet
type ContributionRequest struct {
	GroupID int64           `json:"group_id" binding:"required,gt=0"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// GroupWithdrawalRequest moves money from a group wallet to the caller
type GroupWithdrawalRequest struct {
	GroupID int64           `json:"group_id" binding:"required,gt=0"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// InboundTransferRequest is the partner bank's inbound payload
type InboundTransferRequest struct {
	OriginBank             string          `json:"origin_bank" binding:"required"`
	TransactionID          string          `json:"transaction_id" binding:"required"`
	DestinationPhoneNumber string          `json:"destination_phone_number" binding:"required"`
	Amount                 decimal.Decimal `json:"amount" binding:"required"`
	Currency               string          `json:"currency,omitempty"`
	Description            string          `json:"description,omitempty"`
}

// LoanDisbursementRequest asks for a loan paid into the caller's wallet
type LoanDisbursementRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// TransactionResponse represents a ledger record in API responses
type TransactionResponse struct {
	TransactionID   string            `json:"transaction_id"`
	Type            string            `json:"type"`
	Status          string            `json:"status"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	SourceWallet    WalletRef         `json:"source_wallet"`
	DestWallet      WalletRef         `json:"destination_wallet"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
}

// WalletRef identifies one side of a money movement
type WalletRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// TransactionListResponse represents a list of ledger records
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// ListParams bounds history queries
type ListParams struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=200"`
}

// DailyBalanceParams bounds the analytics window
type DailyBalanceParams struct {
	Days int `form:"days,default=30" binding:"min=1,max=90"`
}

func mapAccountToBalance(acc *wallet.Account) BalanceResponse {
	return BalanceResponse{
		OwnerID:   acc.UserID,
		Balance:   acc.Balance,
		Currency:  acc.Currency,
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapGroupAccountToBalance(acc *wallet.GroupAccount) BalanceResponse {
	return BalanceResponse{
		OwnerID:   acc.GroupID,
		Balance:   acc.Balance,
		Currency:  acc.Currency,
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(tx *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: tx.ID.String(),
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		SourceWallet:  WalletRef{Type: string(tx.SourceWalletType), ID: tx.SourceWalletID},
		DestWallet:    WalletRef{Type: string(tx.DestWalletType), ID: tx.DestWalletID},
		Metadata:      tx.Metadata,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     tx.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionsToResponse(txs []*ledger.Transaction) TransactionListResponse {
	out := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, mapTransactionToResponse(tx))
	}
	return out
}
