package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
)

type countingReviewService struct {
	mu    sync.Mutex
	seen  int
	err   error
	block chan struct{}
}

func (c *countingReviewService) Review(ctx context.Context, escalation *reconciliation.Escalation) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.seen++
	c.mu.Unlock()
	return c.err
}

func TestWorkerPoolReviewService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the wrapped service", func(t *testing.T) {
		base := &countingReviewService{}
		pool, err := NewWorkerPoolReviewService(base, WorkerPoolConfig{Size: 2}, newTestLogger())
		require.NoError(t, err)
		defer pool.Shutdown()

		tx := escalatedTransaction(ledger.StatusNeedsReconciliation)
		err = pool.Review(ctx, reconciliation.NewEscalation(tx, reconciliation.ReasonCompensationFailed, ""))
		require.NoError(t, err)
		assert.Equal(t, 1, base.seen)
	})

	t.Run("surfaces the wrapped service error", func(t *testing.T) {
		base := &countingReviewService{err: errors.New("ledger unavailable")}
		pool, err := NewWorkerPoolReviewService(base, WorkerPoolConfig{Size: 2}, newTestLogger())
		require.NoError(t, err)
		defer pool.Shutdown()

		tx := escalatedTransaction(ledger.StatusPendingConfirmation)
		err = pool.Review(ctx, reconciliation.NewEscalation(tx, reconciliation.ReasonBookkeepingIncomplete, ""))
		assert.ErrorIs(t, err, base.err)
	})

	t.Run("handles concurrent submissions", func(t *testing.T) {
		base := &countingReviewService{}
		pool, err := NewWorkerPoolReviewService(base, WorkerPoolConfig{Size: 4}, newTestLogger())
		require.NoError(t, err)
		defer pool.Shutdown()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tx := escalatedTransaction(ledger.StatusNeedsReconciliation)
				escalation := reconciliation.NewEscalation(tx, reconciliation.ReasonCompensationFailed, "")
				assert.NoError(t, pool.Review(ctx, escalation))
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, base.seen)
	})
}
