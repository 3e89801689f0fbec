package orchestrator

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
)

// recordSpec describes one ledger record to be opened in PENDING state.
type recordSpec struct {
	ActingUserID  int64
	ActingGroupID *int64
	Type          ledger.Type
	Amount        decimal.Decimal
	SourceType    ledger.WalletType
	SourceID      string
	DestType      ledger.WalletType
	DestID        string
	Metadata      map[string]string
}

// newRecord opens a PENDING ledger record.
func newRecord(spec recordSpec) *ledger.Transaction {
	now := time.Now()
	return &ledger.Transaction{
		ID:               uuid.New(),
		ActingUserID:     spec.ActingUserID,
		ActingGroupID:    spec.ActingGroupID,
		SourceWalletType: spec.SourceType,
		SourceWalletID:   spec.SourceID,
		DestWalletType:   spec.DestType,
		DestWalletID:     spec.DestID,
		Type:             spec.Type,
		Amount:           spec.Amount,
		Currency:         wallet.DefaultCurrency,
		Status:           ledger.StatusPending,
		Metadata:         spec.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func userWalletID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func groupWalletID(groupID int64) string {
	return strconv.FormatInt(groupID, 10)
}
