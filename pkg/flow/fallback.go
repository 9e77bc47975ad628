package flow

import (
	"context"
	"fmt"
)

type fallbackPrimitive struct {
	name  string
	chain []Primitive
}

// Fallback tries the primary and, on failure, each fallback in order with
// the original input, returning the first success. When every candidate
// fails the result is a FallbackExhaustedError holding all failures in
// attempt order.
func Fallback(name string, primary Primitive, fallbacks ...Primitive) Primitive {
	if name == "" {
		panic("loom: fallback name must not be empty")
	}
	if primary == nil {
		panic(fmt.Sprintf("loom: fallback %q has a nil primary", name))
	}
	if len(fallbacks) == 0 {
		panic(fmt.Sprintf("loom: fallback %q needs at least one fallback", name))
	}
	chain := make([]Primitive, 0, len(fallbacks)+1)
	chain = append(chain, primary)
	for i, f := range fallbacks {
		if f == nil {
			panic(fmt.Sprintf("loom: fallback %q has a nil fallback at index %d", name, i))
		}
		chain = append(chain, f)
	}
	return &fallbackPrimitive{name: name, chain: chain}
}

func (p *fallbackPrimitive) Name() string { return p.name }
func (p *fallbackPrimitive) Kind() string { return KindFallback }

func (p *fallbackPrimitive) Execute(ctx context.Context, input any) (any, error) {
	failures := make([]error, 0, len(p.chain))
	for _, candidate := range p.chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := Invoke(ctx, candidate, input)
		if err == nil {
			return out, nil
		}
		failures = append(failures, err)
	}
	return nil, &FallbackExhaustedError{Primitive: p.name, Failures: failures}
}
