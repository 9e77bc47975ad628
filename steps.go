package loom

import (
	"context"
	"fmt"
	"time"

	"github.com/theinterneti/loom/pkg/flow"
)

// Step wraps a plain function as a leaf task primitive.
func Step(name string, fn Fn) Primitive {
	return flow.Func(name, fn)
}

// TypedStep wraps a strongly-typed function as a leaf task primitive.
// Example:
//
//	loom.TypedStep("score", func(ctx context.Context, o Order) (Scored, error) { ... })
func TypedStep[I, O any](name string, fn func(context.Context, I) (O, error)) Primitive {
	return flow.Typed(name, fn)
}

// Sequence chains steps so each output feeds the next input.
func Sequence(name string, steps ...Primitive) Primitive {
	return flow.Sequence(name, steps...)
}

// Parallel runs branches concurrently and returns all outputs as []any.
func Parallel(name string, branches ...Primitive) Primitive {
	return flow.Parallel(name, branches...)
}

// FirstOf runs branches concurrently and returns the first success,
// cancelling the rest.
func FirstOf(name string, branches ...Primitive) Primitive {
	return flow.FirstOf(name, branches...)
}

// BestEffort runs branches concurrently and returns every branch's outcome
// as []BranchResult, never failing as a whole.
func BestEffort(name string, branches ...Primitive) Primitive {
	return flow.BestEffort(name, branches...)
}

// Map applies mapper to each element of a []any input concurrently.
func Map(name string, mapper Primitive, opts ...flow.MapOption) Primitive {
	return flow.Map(name, mapper, opts...)
}

// If creates a conditional composed of then/else branches. elseStep may be
// nil to pass input through when the condition is false.
func If(name string, cond Predicate, thenStep, elseStep Primitive) Primitive {
	return flow.If(name, cond, thenStep, elseStep)
}

// Switch dispatches to a route based on a selector.
func Switch(name string, selector Selector, routes map[string]Primitive, opts ...flow.RouterOption) Primitive {
	return flow.Route(name, selector, routes, opts...)
}

// Fallback tries primary, then each fallback in order, returning the first
// success.
func Fallback(name string, primary Primitive, fallbacks ...Primitive) Primitive {
	return flow.Fallback(name, primary, fallbacks...)
}

// Timeout bounds the wrapped primitive's execution.
func Timeout(name string, p Primitive, limit time.Duration) Primitive {
	return flow.Timeout(name, p, limit)
}

// Saga chains steps with reverse-order compensation on failure.
func Saga(name string, steps ...SagaStep) Primitive {
	return flow.Saga(name, steps...)
}

// Cache memoizes the wrapped primitive's successful results.
func Cache(name string, p Primitive, opts ...flow.CacheOption) *CachePrimitive {
	return flow.Cache(name, p, opts...)
}

// While repeatedly executes body while cond holds for the current value.
func While(name string, cond Predicate, body Primitive, opts ...flow.LoopOption) Primitive {
	return flow.While(name, cond, body, opts...)
}

// Loop executes body a fixed number of times, feeding outputs forward.
func Loop(name string, times int, body Primitive) Primitive {
	return flow.Loop(name, times, body)
}

// TypedWhile repeatedly executes a strongly-typed body while cond(value) is
// true. The body runs as a task named <name>_body.
func TypedWhile[I any](name string, cond func(I) bool, body func(context.Context, I) (I, error)) Primitive {
	return flow.While(name,
		typedPredicate[I](name, cond),
		flow.Typed(name+"_body", body),
	)
}

// TypedLoop executes a strongly-typed body a fixed number of times.
func TypedLoop[I any](name string, times int, body func(context.Context, I) (I, error)) Primitive {
	return flow.Loop(name, times, flow.Typed(name+"_body", body))
}

// TypedIf builds a conditional whose predicate sees a strongly-typed input.
func TypedIf[I any](name string, cond func(I) bool, thenStep, elseStep Primitive) Primitive {
	return flow.If(name, typedPredicate[I](name, cond), thenStep, elseStep)
}

func typedPredicate[I any](name string, cond func(I) bool) Predicate {
	return func(_ context.Context, input any) (bool, error) {
		v, ok := input.(I)
		if !ok && input != nil {
			var want I
			return false, fmt.Errorf("%s: expected input of type %T, got %T", name, want, input)
		}
		return cond(v), nil
	}
}

// Sleep passes input through after the given duration, or returns early
// with ctx.Err on cancellation.
func Sleep(name string, d time.Duration) Primitive {
	return flow.Func(name, func(ctx context.Context, input any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
			return input, nil
		}
	})
}
