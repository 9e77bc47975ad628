package flow

import (
	"context"
	"fmt"
)

// DefaultMaxIterations bounds a While loop that never provides its own limit.
const DefaultMaxIterations = 1000

// LoopOption configures a While primitive.
type LoopOption func(*whilePrimitive)

// WithMaxIterations replaces the default iteration bound.
func WithMaxIterations(n int) LoopOption {
	return func(p *whilePrimitive) { p.maxIterations = n }
}

type whilePrimitive struct {
	name          string
	condition     Predicate
	body          Primitive
	maxIterations int
}

// While feeds the value through body as long as the condition holds for it,
// then returns the final value. The condition is evaluated before every
// iteration, so a condition that is false immediately returns the input
// untouched. Exceeding the iteration bound fails with an ExecutionError.
func While(name string, condition Predicate, body Primitive, opts ...LoopOption) Primitive {
	if name == "" {
		panic("loom: while name must not be empty")
	}
	if condition == nil {
		panic(fmt.Sprintf("loom: while %q has a nil condition", name))
	}
	if body == nil {
		panic(fmt.Sprintf("loom: while %q has a nil body", name))
	}
	p := &whilePrimitive{
		name:          name,
		condition:     condition,
		body:          body,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxIterations <= 0 {
		panic(fmt.Sprintf("loom: while %q needs a positive iteration bound", name))
	}
	return p
}

func (p *whilePrimitive) Name() string { return p.name }
func (p *whilePrimitive) Kind() string { return KindLoop }

func (p *whilePrimitive) Execute(ctx context.Context, input any) (any, error) {
	value := input
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := p.condition(ctx, value)
		if err != nil {
			return nil, &ExecutionError{Primitive: p.name, Cause: fmt.Errorf("condition: %w", err)}
		}
		if !ok {
			return value, nil
		}
		if i >= p.maxIterations {
			return nil, &ExecutionError{
				Primitive: p.name,
				Cause:     fmt.Errorf("exceeded %d iterations", p.maxIterations),
			}
		}
		value, err = Invoke(ctx, p.body, value)
		if err != nil {
			return nil, err
		}
	}
}

type loopPrimitive struct {
	name  string
	times int
	body  Primitive
}

// Loop runs body a fixed number of times, feeding each iteration's output
// into the next, and returns the final output.
func Loop(name string, times int, body Primitive) Primitive {
	if name == "" {
		panic("loom: loop name must not be empty")
	}
	if times <= 0 {
		panic(fmt.Sprintf("loom: loop %q needs a positive iteration count", name))
	}
	if body == nil {
		panic(fmt.Sprintf("loom: loop %q has a nil body", name))
	}
	return &loopPrimitive{name: name, times: times, body: body}
}

func (p *loopPrimitive) Name() string { return p.name }
func (p *loopPrimitive) Kind() string { return KindLoop }

func (p *loopPrimitive) Execute(ctx context.Context, input any) (any, error) {
	value := input
	for i := 0; i < p.times; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := Invoke(ctx, p.body, value)
		if err != nil {
			return nil, err
		}
		value = next
	}
	return value, nil
}
