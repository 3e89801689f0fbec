package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/domain/wallet"
	"github.com/pixel-money/wallet-core/internal/platform/persistence"
)

// GroupAccountRepository implements wallet.GroupAccountRepository for
// PostgreSQL. Mutation discipline is identical to AccountRepository.
type GroupAccountRepository struct {
	querier  persistence.Querier
	beginner persistence.TxBeginner
	logger   *slog.Logger
}

// NewGroupAccountRepository creates a new PostgreSQL group account repository.
func NewGroupAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.GroupAccountRepository {
	return &GroupAccountRepository{
		querier:  db.Pool(),
		beginner: db.Pool(),
		logger:   logger,
	}
}

// WithTx scopes the repository to an open transaction.
func (r *GroupAccountRepository) WithTx(tx pgx.Tx) wallet.GroupAccountRepository {
	return &GroupAccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new group account.
func (r *GroupAccountRepository) Create(ctx context.Context, acc *wallet.GroupAccount) error {
	query := `
		INSERT INTO group_accounts (group_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		acc.GroupID,
		acc.Balance,
		acc.Currency,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create group account", "group_id", acc.GroupID, "error", err)
		return fmt.Errorf("failed to create group account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrGroupAccountAlreadyExists{GroupID: acc.GroupID}
	}

	return nil
}

// GetByGroupID retrieves a group account
func (r *GroupAccountRepository) GetByGroupID(ctx context.Context, groupID int64) (*wallet.GroupAccount, error) {
	query := `
		SELECT group_id, balance, currency, version, created_at, updated_at
		FROM group_accounts
		WHERE group_id = $1
	`

	var acc wallet.GroupAccount
	err := r.querier.QueryRow(ctx, query, groupID).Scan(
		&acc.GroupID,
		&acc.Balance,
		&acc.Currency,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrGroupAccountNotFound{GroupID: groupID}
		}
		r.logger.Error("Failed to get group account", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to get group account: %w", err)
	}

	return &acc, nil
}

// Credit adds the amount to the group balance inside its own transaction.
func (r *GroupAccountRepository) Credit(ctx context.Context, groupID int64, amount decimal.Decimal) (*wallet.GroupAccount, error) {
	return r.mutateBalance(ctx, groupID, amount, false)
}

// Debit subtracts the amount from the group balance inside its own
// transaction.
func (r *GroupAccountRepository) Debit(ctx context.Context, groupID int64, amount decimal.Decimal) (*wallet.GroupAccount, error) {
	return r.mutateBalance(ctx, groupID, amount, true)
}

func (r *GroupAccountRepository) mutateBalance(ctx context.Context, groupID int64, amount decimal.Decimal, debit bool) (*wallet.GroupAccount, error) {
	if r.beginner == nil {
		return r.mutateLocked(ctx, groupID, amount, debit)
	}

	tx, err := r.beginner.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := &GroupAccountRepository{querier: tx, logger: r.logger}
	acc, err := txRepo.mutateLocked(ctx, groupID, amount, debit)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit group balance update: %w", err)
	}

	return acc, nil
}

func (r *GroupAccountRepository) mutateLocked(ctx context.Context, groupID int64, amount decimal.Decimal, debit bool) (*wallet.GroupAccount, error) {
	acc, err := r.LockForUpdate(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if debit {
		err = acc.Debit(amount)
	} else {
		err = acc.Credit(amount)
	}
	if err != nil {
		return nil, err
	}

	if err := r.updateBalance(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

func (r *GroupAccountRepository) updateBalance(ctx context.Context, acc *wallet.GroupAccount) error {
	query := `
		UPDATE group_accounts
		SET balance = $1, version = $2, updated_at = $3
		WHERE group_id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.Version,
		acc.UpdatedAt,
		acc.GroupID,
		acc.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update group balance", "group_id", acc.GroupID, "error", err)
		return fmt.Errorf("failed to update group balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{UserID: acc.GroupID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the group account row.
// Must run inside a transaction.
func (r *GroupAccountRepository) LockForUpdate(ctx context.Context, groupID int64) (*wallet.GroupAccount, error) {
	query := `
		SELECT group_id, balance, currency, version, created_at, updated_at
		FROM group_accounts
		WHERE group_id = $1
		FOR UPDATE
	`

	var acc wallet.GroupAccount
	err := r.querier.QueryRow(ctx, query, groupID).Scan(
		&acc.GroupID,
		&acc.Balance,
		&acc.Currency,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrGroupAccountNotFound{GroupID: groupID}
		}
		r.logger.Error("Failed to lock group account for update", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("failed to lock group account for update: %w", err)
	}

	return &acc, nil
}
