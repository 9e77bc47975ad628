package flow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Kind labels for the built-in primitives. Kinds feed span names and the
// primitive_type metric attribute.
const (
	KindTask        = "task"
	KindSequential  = "sequential"
	KindParallel    = "parallel"
	KindConditional = "conditional"
	KindRouter      = "router"
	KindRetry       = "retry"
	KindFallback    = "fallback"
	KindTimeout     = "timeout"
	KindSaga        = "saga"
	KindCache       = "cache"
	KindLoop        = "loop"
	KindMock        = "mock"
)

// Fn is the plain function form of a unit of work.
type Fn func(ctx context.Context, input any) (any, error)

// Primitive is the uniform execution contract every node in a flow graph
// satisfies, leaf tasks and composites alike. Execute returns the output
// value or an error; failures flow back as values and must not panic.
type Primitive interface {
	// Name identifies this node, unique within its graph by convention.
	Name() string
	// Kind reports the primitive family, one of the Kind constants.
	Kind() string
	// Execute runs the node. Implementations must honor ctx cancellation.
	Execute(ctx context.Context, input any) (any, error)
}

type funcPrimitive struct {
	name string
	fn   Fn
}

// Func wraps a plain function as a leaf task primitive.
func Func(name string, fn Fn) Primitive {
	if name == "" {
		panic("loom: primitive name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("loom: primitive %q has a nil function", name))
	}
	return &funcPrimitive{name: name, fn: fn}
}

func (p *funcPrimitive) Name() string { return p.name }
func (p *funcPrimitive) Kind() string { return KindTask }

func (p *funcPrimitive) Execute(ctx context.Context, input any) (any, error) {
	return p.fn(ctx, input)
}

// Typed wraps a strongly typed function as a leaf task primitive. Input that
// is not assignable to I fails with a ValidationError before fn runs; a nil
// input becomes the zero value of I.
func Typed[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) Primitive {
	if fn == nil {
		panic(fmt.Sprintf("loom: primitive %q has a nil function", name))
	}
	return Func(name, func(ctx context.Context, input any) (any, error) {
		in, ok := input.(I)
		if !ok && input != nil {
			var want I
			return nil, &ValidationError{
				Primitive: name,
				Reason:    fmt.Sprintf("expected input of type %T, got %T", want, input),
			}
		}
		return fn(ctx, in)
	})
}

// Invoke is the single entry point for running a primitive. It recovers
// panics into ExecutionError values and, when an engine attached an Observer
// and Execution to ctx, reports primitive start and completion around the
// call. Composites run their children through Invoke so every node in a
// graph gets the same treatment.
func Invoke(ctx context.Context, p Primitive, input any) (any, error) {
	obs := observerFrom(ctx)
	exec := executionFrom(ctx)
	if obs == nil || exec == nil {
		return safeExecute(ctx, p, input)
	}
	obs.OnPrimitiveStart(ctx, exec, p.Name(), p.Kind())
	start := time.Now()
	out, err := safeExecute(ctx, p, input)
	obs.OnPrimitiveCompleted(ctx, exec, p.Name(), p.Kind(), err, time.Since(start))
	return out, err
}

// safeExecute runs p and converts panics into ExecutionError values carrying
// the recovered stack.
func safeExecute(ctx context.Context, p Primitive, input any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &ExecutionError{
				Primitive: p.Name(),
				Cause:     fmt.Errorf("panic: %v", r),
				Stack:     debug.Stack(),
			}
		}
	}()
	return p.Execute(ctx, input)
}
