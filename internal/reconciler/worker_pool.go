package reconciler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
)

// WorkerPoolReviewService fans escalation reviews out over a bounded
// goroutine pool while preserving per-call error reporting.
type WorkerPoolReviewService struct {
	baseService ReviewService
	pool        *ants.Pool
	logger      *slog.Logger
	// Protects the in-flight results map
	mu      sync.Mutex
	results map[string]chan error
}

// WorkerPoolConfig bounds the pool
type WorkerPoolConfig struct {
	Size int
}

// NewWorkerPoolReviewService wraps a review service in an ants pool.
func NewWorkerPoolReviewService(
	baseService ReviewService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReviewService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolReviewService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// Review submits the escalation to the worker pool and waits for its
// outcome.
func (s *WorkerPoolReviewService) Review(ctx context.Context, escalation *reconciliation.Escalation) error {
	log := s.logger
	if escalation.CorrelationID != "" {
		log = s.logger.With("correlation_id", escalation.CorrelationID)
	}

	log.Info("Submitting escalation to worker pool",
		"transaction_id", escalation.TransactionID.String(),
		"reason", string(escalation.Reason),
	)

	resultChan := make(chan error, 1)

	transactionID := escalation.TransactionID.String()
	s.mu.Lock()
	s.results[transactionID] = resultChan
	s.mu.Unlock()

	escalationCopy := *escalation

	err := s.pool.Submit(func() {
		err := s.baseService.Review(ctx, &escalationCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, transactionID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, transactionID)
		close(resultChan)
		s.mu.Unlock()

		log.Error("Failed to submit escalation to worker pool",
			"transaction_id", escalation.TransactionID.String(),
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolReviewService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolReviewService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolReviewService) Capacity() int {
	return s.pool.Cap()
}
