package saga

import (
	"context"
	"errors"
	"fmt"
)

// Step pairs a forward action with its undo. Compensate may be nil for
// steps that have nothing to roll back.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs steps in order and unwinds the completed ones when a later
// step fails.
type Saga struct {
	name  string
	steps []Step
}

func New(name string) *Saga {
	return &Saga{name: name}
}

// AddStep appends a step. Steps run in the order they were added.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs every step sequentially. On failure the completed steps
// are compensated in reverse order; the failed step's own Compensate is
// not called. Returns the index of the failed step, or -1 on success.
func (s *Saga) Execute(ctx context.Context) (int, error) {
	var done []Step

	for i, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			if compErr := unwind(ctx, done); compErr != nil {
				return i, fmt.Errorf("saga %s: step %q failed: %w (compensation errors: %v)", s.name, step.Name, err, compErr)
			}
			return i, fmt.Errorf("saga %s: step %q failed: %w", s.name, step.Name, err)
		}
		done = append(done, step)
	}

	return -1, nil
}

// unwind compensates completed steps last-first, collecting every
// compensation error rather than stopping at the first one.
func unwind(ctx context.Context, done []Step) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensate step %q: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}
