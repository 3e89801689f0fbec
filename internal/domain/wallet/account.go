package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency every wallet is denominated in.
const DefaultCurrency = "PEN"

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Account holds an individual user's balance.
type Account struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Version   int64           `json:"version"` // For optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount creates an account for a user with a zero balance.
func NewAccount(userID int64) *Account {
	now := time.Now()
	return &Account{
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  DefaultCurrency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds the amount to the balance.
func (a *Account) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Debit subtracts the amount from the balance. The balance never goes
// negative.
func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// HasFunds reports whether the balance covers the amount. Advisory only:
// a later Debit revalidates under the row lock.
func (a *Account) HasFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// GroupAccount holds a shared group wallet balance. Mutation rules are
// identical to Account.
type GroupAccount struct {
	GroupID   int64           `json:"group_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewGroupAccount creates a group account with a zero balance.
func NewGroupAccount(groupID int64) *GroupAccount {
	now := time.Now()
	return &GroupAccount{
		GroupID:   groupID,
		Balance:   decimal.Zero,
		Currency:  DefaultCurrency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds the amount to the group balance.
func (g *GroupAccount) Credit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	g.Balance = g.Balance.Add(amount)
	g.UpdatedAt = time.Now()
	g.Version++
	return nil
}

// Debit subtracts the amount from the group balance.
func (g *GroupAccount) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	g.Balance = g.Balance.Sub(amount)
	g.UpdatedAt = time.Now()
	g.Version++
	return nil
}

// HasFunds reports whether the group balance covers the amount.
func (g *GroupAccount) HasFunds(amount decimal.Decimal) bool {
	return g.Balance.GreaterThanOrEqual(amount)
}
