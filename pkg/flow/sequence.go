package flow

import (
	"context"
	"fmt"
)

type sequencePrimitive struct {
	name  string
	steps []Primitive
}

// Sequence chains steps so each step's output becomes the next step's input.
// The first failure short-circuits the chain and becomes the sequence's
// failure; later steps are not invoked.
func Sequence(name string, steps ...Primitive) Primitive {
	if name == "" {
		panic("loom: sequence name must not be empty")
	}
	if len(steps) == 0 {
		panic(fmt.Sprintf("loom: sequence %q needs at least one step", name))
	}
	for i, s := range steps {
		if s == nil {
			panic(fmt.Sprintf("loom: sequence %q has a nil step at index %d", name, i))
		}
	}
	return &sequencePrimitive{name: name, steps: append([]Primitive(nil), steps...)}
}

func (p *sequencePrimitive) Name() string { return p.name }
func (p *sequencePrimitive) Kind() string { return KindSequential }

func (p *sequencePrimitive) Execute(ctx context.Context, input any) (any, error) {
	out := input
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := Invoke(ctx, step, out)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
