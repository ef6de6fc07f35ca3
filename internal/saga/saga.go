// Package saga runs multi-step mutations with compensating undo steps.
package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step is one forward action and the action that reverses it. Undo may be
// nil for steps with nothing to reverse.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Run executes steps in order. When one fails, the undo of every step that
// already completed runs in reverse order. The returned error wraps the
// step failure and any undo failures.
func Run(ctx context.Context, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, s := range steps {
		if err := s.Do(ctx); err != nil {
			errs := []error{&StepError{Step: s.Name, Err: err}}
			// Compensation must run even when the request context is gone.
			uctx := context.WithoutCancel(ctx)
			for i := len(done) - 1; i >= 0; i-- {
				if done[i].Undo == nil {
					continue
				}
				if uerr := done[i].Undo(uctx); uerr != nil {
					errs = append(errs, fmt.Errorf("undo %s: %w", done[i].Name, uerr))
				}
			}
			return errors.Join(errs...)
		}
		done = append(done, s)
	}
	return nil
}
