package flow

import (
	"context"
	"fmt"
)

// SagaStep pairs a forward primitive with its compensator. The compensator
// receives the forward step's output as input, so it can undo exactly what
// was done. A nil Compensate marks the step as not needing rollback.
type SagaStep struct {
	Name       string
	Forward    Primitive
	Compensate Primitive
}

type sagaRecord struct {
	step   SagaStep
	output any
}

type sagaPrimitive struct {
	name  string
	steps []SagaStep
}

// Saga chains forward steps like a Sequence, but on failure runs the
// compensators of every completed step in reverse order before returning a
// CompensationError. Compensator failures are collected into the error and
// never stop the rollback. The failed step itself is not compensated.
func Saga(name string, steps ...SagaStep) Primitive {
	if name == "" {
		panic("loom: saga name must not be empty")
	}
	if len(steps) == 0 {
		panic(fmt.Sprintf("loom: saga %q needs at least one step", name))
	}
	copied := make([]SagaStep, len(steps))
	for i, st := range steps {
		if st.Forward == nil {
			panic(fmt.Sprintf("loom: saga %q has a nil forward primitive at index %d", name, i))
		}
		if st.Name == "" {
			st.Name = st.Forward.Name()
		}
		copied[i] = st
	}
	return &sagaPrimitive{name: name, steps: copied}
}

func (p *sagaPrimitive) Name() string { return p.name }
func (p *sagaPrimitive) Kind() string { return KindSaga }

func (p *sagaPrimitive) Execute(ctx context.Context, input any) (any, error) {
	value := input
	completed := make([]sagaRecord, 0, len(p.steps))
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, p.compensate(ctx, completed, err)
		}
		next, err := Invoke(ctx, step.Forward, value)
		if err != nil {
			return nil, p.compensate(ctx, completed, err)
		}
		completed = append(completed, sagaRecord{step: step, output: next})
		value = next
	}
	return value, nil
}

// compensate rolls back completed steps newest-first. Rollback runs even
// when the trigger was a cancellation, since completed side effects still
// need undoing.
func (p *sagaPrimitive) compensate(ctx context.Context, completed []sagaRecord, trigger error) error {
	rollbackCtx := context.WithoutCancel(ctx)
	var failures []error
	for i := len(completed) - 1; i >= 0; i-- {
		rec := completed[i]
		if rec.step.Compensate == nil {
			continue
		}
		if _, err := Invoke(rollbackCtx, rec.step.Compensate, rec.output); err != nil {
			failures = append(failures, fmt.Errorf("compensate %s: %w", rec.step.Name, err))
		}
	}
	return &CompensationError{Primitive: p.name, Cause: trigger, Failures: failures}
}
