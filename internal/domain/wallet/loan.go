package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus defines loan lifecycle states
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "ACTIVE"
	LoanStatusPaid   LoanStatus = "PAID"
)

// Loan is an interest-bearing loan against a user. Payment always clears
// the full outstanding balance; there are no partial payments.
type Loan struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             int64           `json:"user_id"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	Status             LoanStatus      `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	DueDate            time.Time       `json:"due_date"`
}

// NewLoan creates an ACTIVE loan. The outstanding balance is the principal
// plus interest, fixed at creation.
func NewLoan(userID int64, principal, rate decimal.Decimal, term time.Duration) (*Loan, error) {
	if !principal.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Loan{
		ID:                 uuid.New(),
		UserID:             userID,
		PrincipalAmount:    principal,
		OutstandingBalance: principal.Mul(decimal.NewFromInt(1).Add(rate)).Round(2),
		InterestRate:       rate,
		Status:             LoanStatusActive,
		CreatedAt:          now,
		DueDate:            now.Add(term),
	}, nil
}

// MarkPaid settles the loan in full.
func (l *Loan) MarkPaid() {
	l.Status = LoanStatusPaid
	l.OutstandingBalance = decimal.Zero
}
