package flow

import (
	"context"
	"fmt"
	"time"
)

type timeoutPrimitive struct {
	name    string
	wrapped Primitive
	limit   time.Duration
}

// Timeout bounds the wrapped primitive's execution. When the limit passes
// before the primitive returns, Timeout returns a TimeoutError immediately
// and cancels the primitive's context; the primitive is expected to notice
// the cancellation and stop, but Timeout does not wait for it.
func Timeout(name string, p Primitive, limit time.Duration) Primitive {
	if name == "" {
		panic("loom: timeout name must not be empty")
	}
	if p == nil {
		panic(fmt.Sprintf("loom: timeout %q wraps a nil primitive", name))
	}
	if limit <= 0 {
		panic(fmt.Sprintf("loom: timeout %q needs a positive limit", name))
	}
	return &timeoutPrimitive{name: name, wrapped: p, limit: limit}
}

func (p *timeoutPrimitive) Name() string { return p.name }
func (p *timeoutPrimitive) Kind() string { return KindTimeout }

func (p *timeoutPrimitive) Execute(ctx context.Context, input any) (any, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.limit)
	defer cancel()

	type result struct {
		out any
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := Invoke(timeoutCtx, p.wrapped, input)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-timeoutCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &TimeoutError{Primitive: p.name, Limit: p.limit}
	}
}
