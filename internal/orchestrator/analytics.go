package orchestrator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
)

// DailyBalance is the user's balance at the end of one calendar day.
type DailyBalance struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// DailyBalances replays the user's completed transactions backwards from
// the current balance to produce one end-of-day balance per day, oldest
// first. Days without activity carry the previous balance forward.
func (o *Orchestrator) DailyBalances(ctx context.Context, userID int64, days int) ([]DailyBalance, error) {
	if days <= 0 {
		return nil, shared.NewOpError(shared.CodeValidation, "days must be positive")
	}

	account, err := o.accounts.GetByUserID(ctx, userID)
	if err != nil {
		_, opErr := classifyBalanceError(err)
		return nil, opErr
	}

	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	since := startOfToday.AddDate(0, 0, -(days - 1))

	txs, err := o.ledger.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, shared.WrapOpError(shared.CodeInternal, "failed to load transaction history", err)
	}

	// Net movement per day, keyed by the day's start.
	deltas := make(map[time.Time]decimal.Decimal, days)
	for _, tx := range txs {
		if tx.Status != ledger.StatusCompleted {
			continue
		}
		// Stored timestamps may carry another zone; bucket by the local
		// calendar day of the instant, not by its wall-clock fields.
		created := tx.CreatedAt.In(now.Location())
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, now.Location())
		deltas[day] = deltas[day].Add(tx.Type.SignedDelta(tx.Amount))
	}

	// Walk backwards from today's balance, undoing each day's movement
	// to find the balance at the end of the previous day.
	balances := make([]DailyBalance, days)
	balance := account.Balance
	for i := days - 1; i >= 0; i-- {
		day := startOfToday.AddDate(0, 0, i-(days-1))
		balances[i] = DailyBalance{
			Date:    day.Format("2006-01-02"),
			Balance: balance,
		}
		balance = balance.Sub(deltas[day])
	}

	return balances, nil
}
