package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type defines the kind of money movement a transaction records
type Type string

const (
	TypeDeposit              Type = "DEPOSIT"
	TypeTransfer             Type = "TRANSFER"
	TypeContributionSent     Type = "CONTRIBUTION_SENT"
	TypeContributionReceived Type = "CONTRIBUTION_RECEIVED"
	TypeP2PSent              Type = "P2P_SENT"
	TypeP2PReceived          Type = "P2P_RECEIVED"
	TypeGroupWithdrawal      Type = "GROUP_WITHDRAWAL"
	TypeLoanDisbursement     Type = "LOAN_DISBURSEMENT"
	TypeLoanPayment          Type = "LOAN_PAYMENT"
)

// SignedDelta returns the amount with the sign this transaction type
// applies to the acting user's balance. Used by the daily-balance replay.
func (t Type) SignedDelta(amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeDeposit, TypeContributionReceived, TypeP2PReceived,
		TypeGroupWithdrawal, TypeLoanDisbursement:
		return amount
	case TypeTransfer, TypeContributionSent, TypeP2PSent, TypeLoanPayment:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}

// Status defines transaction lifecycle states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"

	// Terminal failure states carrying the root cause class
	StatusFailedFunds   Status = "FAILED_FUNDS"
	StatusFailedAccount Status = "FAILED_ACCOUNT"
	StatusFailedNetwork Status = "FAILED_NETWORK"
	StatusFailedUnknown Status = "FAILED_UNKNOWN"

	// Money moved but bookkeeping did not complete. Operator follow-up
	// required; never retried by clients.
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	StatusNeedsReconciliation Status = "NEEDS_RECONCILIATION"
)

// Terminal reports whether a status ends the transaction lifecycle.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// WalletType classifies the source or destination of a movement
type WalletType string

const (
	WalletIndividual   WalletType = "INDIVIDUAL"
	WalletGroup        WalletType = "GROUP"
	WalletExternal     WalletType = "EXTERNAL"
	WalletExternalBank WalletType = "EXTERNAL_BANK"
	WalletLoanVault    WalletType = "LOAN_VAULT"
)

// Transaction is a ledger record. Immutable once COMPLETED except for the
// bounded in-place status transition from PENDING.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	ActingUserID      int64             `json:"acting_user_id"`
	ActingGroupID     *int64            `json:"acting_group_id,omitempty"`
	SourceWalletType  WalletType        `json:"source_wallet_type"`
	SourceWalletID    string            `json:"source_wallet_id"`
	DestWalletType    WalletType        `json:"destination_wallet_type"`
	DestWalletID      string            `json:"destination_wallet_id"`
	Type              Type              `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Status            Status            `json:"status"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// WriteSet is the unit of ledger persistence: every record in the set,
// across all its projections, is applied in one atomic batch. Multi-leg
// operations (P2P, contributions, group withdrawals) put both legs in the
// same set so readers never observe half an operation.
type WriteSet struct {
	Records []*Transaction
}

// NewWriteSet builds a write set over the given records.
func NewWriteSet(records ...*Transaction) *WriteSet {
	return &WriteSet{Records: records}
}

// IDs returns the transaction ids in the set, in record order.
func (ws *WriteSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ws.Records))
	for _, r := range ws.Records {
		ids = append(ids, r.ID)
	}
	return ids
}
