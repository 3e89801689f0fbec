package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages ledger persistence across the three projections
// (by transaction id, by acting user, by acting group). Apply and Finalize
// touch every projection of their records as one atomic batch; partial
// application is a correctness bug.
type Repository interface {
	Apply(ctx context.Context, ws *WriteSet) error
	Finalize(ctx context.Context, ids []uuid.UUID, status Status, metadata map[string]string) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
	ListByUserSince(ctx context.Context, userID int64, since time.Time) ([]*Transaction, error)
	ListByGroup(ctx context.Context, groupID int64, limit int) ([]*Transaction, error)
	ListByStatus(ctx context.Context, status Status, olderThan time.Time, limit int) ([]*Transaction, error)
}

// ErrTransactionNotFound indicates a missing ledger record
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID.String()
}

// Is matches any ErrTransactionNotFound when the target carries a nil id
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateTransaction indicates transaction id uniqueness violation
type ErrDuplicateTransaction struct {
	ID uuid.UUID
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate transaction: " + e.ID.String()
}

// Is matches any ErrDuplicateTransaction when the target carries a nil id
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
