package flow

import (
	"context"
	"fmt"
)

// Predicate decides which branch of a conditional runs.
type Predicate func(ctx context.Context, input any) (bool, error)

type conditionalPrimitive struct {
	name      string
	predicate Predicate
	then      Primitive
	otherwise Primitive
}

// If routes input to then when the predicate holds and to otherwise when it
// does not. A nil otherwise passes the input through unchanged, so If can
// express optional steps. A predicate error fails the conditional without
// invoking either branch.
func If(name string, predicate Predicate, then, otherwise Primitive) Primitive {
	if name == "" {
		panic("loom: conditional name must not be empty")
	}
	if predicate == nil {
		panic(fmt.Sprintf("loom: conditional %q has a nil predicate", name))
	}
	if then == nil {
		panic(fmt.Sprintf("loom: conditional %q has a nil then branch", name))
	}
	return &conditionalPrimitive{name: name, predicate: predicate, then: then, otherwise: otherwise}
}

func (p *conditionalPrimitive) Name() string { return p.name }
func (p *conditionalPrimitive) Kind() string { return KindConditional }

func (p *conditionalPrimitive) Execute(ctx context.Context, input any) (any, error) {
	ok, err := p.predicate(ctx, input)
	if err != nil {
		return nil, &ExecutionError{Primitive: p.name, Cause: fmt.Errorf("predicate: %w", err)}
	}
	branch := p.then
	if !ok {
		branch = p.otherwise
	}
	if branch == nil {
		return input, nil
	}
	return Invoke(ctx, branch, input)
}
