package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeLedger is an in-memory ledger.Repository for triage and poller tests.
type fakeLedger struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ledger.Transaction

	getErr      error
	listErr     error
	finalizeErr error
	finalized   [][]uuid.UUID
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[uuid.UUID]*ledger.Transaction)}
}

func (f *fakeLedger) add(tx *ledger.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[tx.ID] = tx
}

func (f *fakeLedger) Apply(ctx context.Context, ws *ledger.WriteSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range ws.Records {
		f.records[tx.ID] = tx
	}
	return nil
}

func (f *fakeLedger) Finalize(ctx context.Context, ids []uuid.UUID, status ledger.Status, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalized = append(f.finalized, ids)
	for _, id := range ids {
		if tx, ok := f.records[id]; ok {
			tx.Status = status
		}
	}
	return nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	tx, ok := f.records[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound{ID: id}
	}
	return tx, nil
}

func (f *fakeLedger) ListByUser(ctx context.Context, userID int64, limit int) ([]*ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) ListByUserSince(ctx context.Context, userID int64, since time.Time) ([]*ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) ListByStatus(ctx context.Context, status ledger.Status, olderThan time.Time, limit int) ([]*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*ledger.Transaction
	for _, tx := range f.records {
		if tx.Status == status && tx.CreatedAt.Before(olderThan) {
			out = append(out, tx)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func escalatedTransaction(status ledger.Status) *ledger.Transaction {
	now := time.Now()
	return &ledger.Transaction{
		ID:               uuid.New(),
		ActingUserID:     42,
		SourceWalletType: ledger.WalletExternal,
		SourceWalletID:   "BANK",
		DestWalletType:   ledger.WalletIndividual,
		DestWalletID:     "42",
		Type:             ledger.TypeDeposit,
		Amount:           decimal.NewFromInt(100),
		Currency:         "PEN",
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestTriageService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("settled transaction is acknowledged quietly", func(t *testing.T) {
		store := newFakeLedger()
		tx := escalatedTransaction(ledger.StatusCompleted)
		store.add(tx)

		svc := NewTriageService(newTestLogger(), store)
		err := svc.Review(ctx, reconciliation.NewEscalation(tx, reconciliation.ReasonBookkeepingIncomplete, ""))
		assert.NoError(t, err)
	})

	t.Run("missing transaction is acknowledged", func(t *testing.T) {
		store := newFakeLedger()
		tx := escalatedTransaction(ledger.StatusNeedsReconciliation)

		svc := NewTriageService(newTestLogger(), store)
		err := svc.Review(ctx, reconciliation.NewEscalation(tx, reconciliation.ReasonCompensationFailed, ""))
		assert.NoError(t, err)
	})

	t.Run("unsettled transaction is reported without error", func(t *testing.T) {
		store := newFakeLedger()
		tx := escalatedTransaction(ledger.StatusPendingConfirmation)
		store.add(tx)

		svc := NewTriageService(newTestLogger(), store)
		err := svc.Review(ctx, reconciliation.NewEscalation(tx, reconciliation.ReasonBookkeepingIncomplete, "final status write failed"))
		assert.NoError(t, err)
	})

	t.Run("transient lookup failure is returned for retry", func(t *testing.T) {
		store := newFakeLedger()
		store.getErr = errors.New("mongo unavailable")
		tx := escalatedTransaction(ledger.StatusNeedsReconciliation)

		svc := NewTriageService(newTestLogger(), store)
		err := svc.Review(ctx, reconciliation.NewEscalation(tx, reconciliation.ReasonCompensationFailed, ""))
		require.Error(t, err)
		assert.ErrorIs(t, err, store.getErr)
	})
}
