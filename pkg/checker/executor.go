package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
)

var (
	// ErrExecutionTimeout is returned when the run exceeds its deadline.
	ErrExecutionTimeout = errors.New("checker execution timed out")

	// ErrExecutionCanceled is returned when the run context is canceled.
	ErrExecutionCanceled = errors.New("checker execution canceled")
)

// ContextError returns an error if the context is done, nil otherwise.
// Checkers call this before issuing further state-changing operations so a
// user interrupt stops new actions while cleanup can still run.
func ContextError(ctx context.Context) error {
	select {
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrExecutionTimeout
		}
		if errors.Is(err, context.Canceled) {
			return ErrExecutionCanceled
		}

		return fmt.Errorf("context error: %w", err)
	default:
		return nil
	}
}

// Executor runs checkers sequentially against a target.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// ExecuteAll runs every registered checker.
func (e *Executor) ExecuteAll(ctx context.Context, target *Target) {
	e.execute(ctx, target, e.registry.ListAll())
}

// ExecuteSelective runs the checkers matching the selector patterns.
func (e *Executor) ExecuteSelective(ctx context.Context, target *Target, patterns []string) error {
	checkers, err := e.registry.ListByPatterns(patterns)
	if err != nil {
		return fmt.Errorf("selecting checkers: %w", err)
	}

	e.execute(ctx, target, checkers)

	return nil
}

// execute runs the checkers in order. A checker error aborts that
// checker's remaining work but never the rest of the suite; it is recorded
// as a failure against the checker's category.
func (e *Executor) execute(ctx context.Context, target *Target, checkers []Checker) {
	log := target.Logger()

	for _, c := range checkers {
		if err := ContextError(ctx); err != nil {
			log.Warnw("stopping checker execution", "reason", err)

			return
		}

		log.Infow("running use case checker", "id", c.ID(), "category", c.Category())
		if err := c.Run(ctx, target); err != nil {
			// Partial findings are already in the result set; record why
			// the remainder of this use case could not run.
			target.Results.Add(c.Category(), "Execution", "Running the use case",
				result.StatusFail, fmt.Sprintf("Checker aborted: %v.", err))
			log.Errorw("use case checker aborted", "id", c.ID(), "error", err)
		}
	}
}
