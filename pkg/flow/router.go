package flow

import (
	"context"
	"fmt"
)

// Selector derives the routing key for a Router from the input.
type Selector func(ctx context.Context, input any) (string, error)

// RouterOption configures a Router.
type RouterOption func(*routerPrimitive)

// WithDefaultRoute names the route taken when the selector's key matches no
// entry. The key must exist in the route table.
func WithDefaultRoute(key string) RouterOption {
	return func(p *routerPrimitive) {
		p.defaultKey = key
		p.hasDefault = true
	}
}

type routerPrimitive struct {
	name       string
	selector   Selector
	routes     map[string]Primitive
	defaultKey string
	hasDefault bool
}

// Route dispatches input to one of the routes keyed by the selector's
// result. An unknown key falls back to the default route when one is
// configured and otherwise fails with a RouteNotFoundError without invoking
// anything.
func Route(name string, selector Selector, routes map[string]Primitive, opts ...RouterOption) Primitive {
	if name == "" {
		panic("loom: router name must not be empty")
	}
	if selector == nil {
		panic(fmt.Sprintf("loom: router %q has a nil selector", name))
	}
	if len(routes) == 0 {
		panic(fmt.Sprintf("loom: router %q needs at least one route", name))
	}
	p := &routerPrimitive{
		name:     name,
		selector: selector,
		routes:   make(map[string]Primitive, len(routes)),
	}
	for key, dest := range routes {
		if dest == nil {
			panic(fmt.Sprintf("loom: router %q has a nil route for key %q", name, key))
		}
		p.routes[key] = dest
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.hasDefault {
		if _, ok := p.routes[p.defaultKey]; !ok {
			panic(fmt.Sprintf("loom: router %q default route %q is not in the route table", name, p.defaultKey))
		}
	}
	return p
}

func (p *routerPrimitive) Name() string { return p.name }
func (p *routerPrimitive) Kind() string { return KindRouter }

func (p *routerPrimitive) Execute(ctx context.Context, input any) (any, error) {
	key, err := p.selector(ctx, input)
	if err != nil {
		return nil, &ExecutionError{Primitive: p.name, Cause: fmt.Errorf("selector: %w", err)}
	}
	dest, ok := p.routes[key]
	if !ok && p.hasDefault {
		dest, ok = p.routes[p.defaultKey]
	}
	if !ok {
		return nil, &RouteNotFoundError{Primitive: p.name, Key: key}
	}
	return Invoke(ctx, dest, input)
}
