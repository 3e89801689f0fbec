package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
)

// step is one unit of a saga: a forward action and, when the action moves
// money that a later failure must undo, a compensating action.
type step struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// compensationError reports a saga whose compensation path itself failed.
// Balances are inconsistent and the operation must be escalated.
type compensationError struct {
	failedStep string
	stepErr    error
	compErr    error
}

func (e *compensationError) Error() string {
	return fmt.Sprintf("compensation for step %q failed: %v (original error: %v)", e.failedStep, e.compErr, e.stepErr)
}

func (e *compensationError) Unwrap() error {
	return e.stepErr
}

// runSaga executes the steps in order. When a step fails, the
// compensations of all previously completed steps run in reverse order and
// the step's error is returned. When a compensation fails, the saga stops
// compensating and returns a *compensationError instead.
func runSaga(ctx context.Context, logger *slog.Logger, steps []step) error {
	for i, s := range steps {
		err := s.run(ctx)
		if err == nil {
			continue
		}

		logger.Warn("Saga step failed, compensating", "step", s.name, "completed_steps", i, "error", err)

		for j := i - 1; j >= 0; j-- {
			prev := steps[j]
			if prev.compensate == nil {
				continue
			}
			if compErr := prev.compensate(ctx); compErr != nil {
				return &compensationError{failedStep: prev.name, stepErr: err, compErr: compErr}
			}
			logger.Info("Saga step compensated", "step", prev.name)
		}

		return err
	}

	return nil
}
