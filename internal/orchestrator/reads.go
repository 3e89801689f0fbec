package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/shared"
)

// GetTransaction looks up one ledger record by id.
func (o *Orchestrator) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	tx, err := o.ledger.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound{}) {
			return nil, shared.WrapOpError(shared.CodeNotFound, "transaction not found", err)
		}
		return nil, shared.WrapOpError(shared.CodeInternal, "failed to load transaction", err)
	}
	return tx, nil
}

// ListUserTransactions returns the user's history, newest first.
func (o *Orchestrator) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*ledger.Transaction, error) {
	txs, err := o.ledger.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, shared.WrapOpError(shared.CodeInternal, "failed to load transaction history", err)
	}
	return txs, nil
}

// ListGroupTransactions returns the group's history, newest first.
func (o *Orchestrator) ListGroupTransactions(ctx context.Context, groupID int64, limit int) ([]*ledger.Transaction, error) {
	txs, err := o.ledger.ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, shared.WrapOpError(shared.CodeInternal, "failed to load group transaction history", err)
	}
	return txs, nil
}
