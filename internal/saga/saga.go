// Package saga runs multi-entity write sequences with explicit undo actions.
// The persistence layer only guarantees per-document atomicity, so any
// workflow that writes two records keeps consistency through program order
// and compensation, not transactions.
package saga

import (
	"context"
	"fmt"
)

// Step pairs a forward action with the action that undoes it. Compensate may
// be nil for steps with nothing to undo (validations, the final step).
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// CompensationError reports a forward failure together with any compensation
// failures. A non-empty Failed list means the system was left inconsistent
// and needs operator attention; it is never silently discarded.
type CompensationError struct {
	Step   string
	Cause  error
	Failed []error
}

func (e *CompensationError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("saga: step %s failed: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("saga: step %s failed: %v (and %d compensation(s) failed: %v)",
		e.Step, e.Cause, len(e.Failed), e.Failed)
}

// Unwrap exposes the original failure so callers can match it with errors.Is.
func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// Execute runs steps in order and stops at the first failure. Compensations
// for the already-completed steps then run in reverse order; their failures
// are collected, not allowed to mask the original error.
func Execute(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		err := step.Run(ctx)
		if err == nil {
			continue
		}

		cerr := &CompensationError{Step: step.Name, Cause: err}
		for j := i - 1; j >= 0; j-- {
			if steps[j].Compensate == nil {
				continue
			}
			if undoErr := steps[j].Compensate(ctx); undoErr != nil {
				cerr.Failed = append(cerr.Failed,
					fmt.Errorf("compensate %s: %w", steps[j].Name, undoErr))
			}
		}
		return cerr
	}
	return nil
}
