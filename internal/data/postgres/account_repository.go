// Package postgres provides PostgreSQL implementations of the wallet
// repositories. Balance mutations run as serialized critical sections:
// row lock, validate, write, all inside one transaction.
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

// AccountRepository implements wallet.AccountRepository for PostgreSQL
type AccountRepository struct {
	querier  persistence.Querier
	beginner persistence.TxBeginner // nil when already scoped to a transaction
	logger   *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.AccountRepository {
	return &AccountRepository{
		querier:  db.Pool(),
		beginner: db.Pool(),
		logger:   logger,
	}
}

// WithTx scopes the repository to an open transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) wallet.AccountRepository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. Fails with ErrAccountAlreadyExists when the
// user already has one.
func (r *AccountRepository) Create(ctx context.Context, acc *wallet.Account) error {
	query := `
		INSERT INTO accounts (user_id, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		acc.UserID,
		acc.Balance,
		acc.Currency,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "user_id", acc.UserID, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrAccountAlreadyExists{UserID: acc.UserID}
	}

	return nil
}

// GetByUserID retrieves an account by its owning user
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*wallet.Account, error) {
	query := `
		SELECT user_id, balance, currency, version, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`

	var acc wallet.Account
	err := r.querier.QueryRow(ctx, query, userID).Scan(
		&acc.UserID,
		&acc.Balance,
		&acc.Currency,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrAccountNotFound{UserID: userID}
		}
		r.logger.Error("Failed to get account", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// Credit adds the amount to the balance inside its own transaction.
func (r *AccountRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (*wallet.Account, error) {
	return r.mutateBalance(ctx, userID, amount, false)
}

// Debit subtracts the amount from the balance inside its own transaction.
// Fails with wallet.ErrInsufficientFunds when the balance does not cover it.
func (r *AccountRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (*wallet.Account, error) {
	return r.mutateBalance(ctx, userID, amount, true)
}

// mutateBalance is the serialized critical section shared by Credit and
// Debit: lock the row, validate through the domain model, write back with
// the version check as a second line of defense.
func (r *AccountRepository) mutateBalance(ctx context.Context, userID int64, amount decimal.Decimal, debit bool) (*wallet.Account, error) {
	if r.beginner == nil {
		return r.mutateLocked(ctx, userID, amount, debit)
	}

	tx, err := r.beginner.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // No-op after commit
	}()

	txRepo := &AccountRepository{querier: tx, logger: r.logger}
	acc, err := txRepo.mutateLocked(ctx, userID, amount, debit)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit balance update: %w", err)
	}

	return acc, nil
}

func (r *AccountRepository) mutateLocked(ctx context.Context, userID int64, amount decimal.Decimal, debit bool) (*wallet.Account, error) {
	acc, err := r.LockForUpdate(ctx, userID)
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

// updateBalance writes a mutated account back, checking the previous
// version to detect lost updates.
func (r *AccountRepository) updateBalance(ctx context.Context, acc *wallet.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = $2, updated_at = $3
		WHERE user_id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.Version,
		acc.UpdatedAt,
		acc.UserID,
		acc.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update account balance", "user_id", acc.UserID, "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{UserID: acc.UserID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account row and returns
// its current state. Must run inside a transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, userID int64) (*wallet.Account, error) {
	query := `
		SELECT user_id, balance, currency, version, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`

	var acc wallet.Account
	err := r.querier.QueryRow(ctx, query, userID).Scan(
		&acc.UserID,
		&acc.Balance,
		&acc.Currency,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrAccountNotFound{UserID: userID}
		}
		r.logger.Error("Failed to lock account for update", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return &acc, nil
}

// Delete removes an account. The balance is checked under the row lock so
// a concurrent credit cannot slip in between check and delete.
func (r *AccountRepository) Delete(ctx context.Context, userID int64) error {
	if r.beginner == nil {
		return r.deleteLocked(ctx, userID)
	}

	tx, err := r.beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := &AccountRepository{querier: tx, logger: r.logger}
	if err := txRepo.deleteLocked(ctx, userID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account deletion: %w", err)
	}

	return nil
}

func (r *AccountRepository) deleteLocked(ctx context.Context, userID int64) error {
	acc, err := r.LockForUpdate(ctx, userID)
	if err != nil {
		return err
	}

	if !acc.Balance.IsZero() {
		return wallet.ErrOutstandingObligation{UserID: userID, Amount: acc.Balance}
	}

	query := `
		DELETE FROM accounts
		WHERE user_id = $1
	`

	if _, err := r.querier.Exec(ctx, query, userID); err != nil {
		r.logger.Error("Failed to delete account", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}
