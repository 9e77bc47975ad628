package flow

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// BranchResult is the per-branch outcome a BestEffort primitive returns.
// Exactly one of Value and Err is meaningful.
type BranchResult struct {
	Branch string
	Value  any
	Err    error
}

type parallelStrategy int

const (
	strategyAll parallelStrategy = iota
	strategyFirst
	strategyBestEffort
)

type parallelPrimitive struct {
	name     string
	branches []Primitive
	strategy parallelStrategy
}

// Parallel runs every branch concurrently with the same input and waits for
// all of them. On success the output is a []any of branch outputs in branch
// order. If any branch fails the whole primitive fails with a ParallelError
// aggregating every failed branch; it still waits for the remaining branches
// rather than cancelling them.
func Parallel(name string, branches ...Primitive) Primitive {
	return newParallel(name, strategyAll, branches)
}

// FirstOf runs every branch concurrently and returns the first successful
// output, cancelling the rest. It fails with a ParallelError only when every
// branch has failed.
func FirstOf(name string, branches ...Primitive) Primitive {
	return newParallel(name, strategyFirst, branches)
}

// BestEffort runs every branch concurrently and always succeeds, returning a
// []BranchResult holding each branch's output or error in branch order.
func BestEffort(name string, branches ...Primitive) Primitive {
	return newParallel(name, strategyBestEffort, branches)
}

func newParallel(name string, strategy parallelStrategy, branches []Primitive) Primitive {
	if name == "" {
		panic("loom: parallel name must not be empty")
	}
	if len(branches) == 0 {
		panic(fmt.Sprintf("loom: parallel %q needs at least one branch", name))
	}
	for i, b := range branches {
		if b == nil {
			panic(fmt.Sprintf("loom: parallel %q has a nil branch at index %d", name, i))
		}
	}
	return &parallelPrimitive{
		name:     name,
		branches: append([]Primitive(nil), branches...),
		strategy: strategy,
	}
}

func (p *parallelPrimitive) Name() string { return p.name }
func (p *parallelPrimitive) Kind() string { return KindParallel }

func (p *parallelPrimitive) Execute(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch p.strategy {
	case strategyFirst:
		return p.executeFirst(ctx, input)
	case strategyBestEffort:
		return p.executeBestEffort(ctx, input)
	default:
		return p.executeAll(ctx, input)
	}
}

func (p *parallelPrimitive) executeAll(ctx context.Context, input any) (any, error) {
	results := make([]any, len(p.branches))
	failures := make([]*BranchError, len(p.branches))
	var g errgroup.Group
	for i, branch := range p.branches {
		g.Go(func() error {
			out, err := Invoke(ctx, branch, input)
			if err != nil {
				failures[i] = &BranchError{Branch: branch.Name(), Index: i, Err: err}
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()
	var failed []*BranchError
	for _, f := range failures {
		if f != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		return nil, &ParallelError{Primitive: p.name, Branches: failed}
	}
	return results, nil
}

func (p *parallelPrimitive) executeFirst(ctx context.Context, input any) (any, error) {
	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type branchOutcome struct {
		index int
		out   any
		err   error
	}
	outcomes := make(chan branchOutcome, len(p.branches))
	for i, branch := range p.branches {
		go func() {
			out, err := Invoke(branchCtx, branch, input)
			outcomes <- branchOutcome{index: i, out: out, err: err}
		}()
	}

	var failed []*BranchError
	for range p.branches {
		select {
		case o := <-outcomes:
			if o.err == nil {
				return o.out, nil
			}
			failed = append(failed, &BranchError{
				Branch: p.branches[o.index].Name(),
				Index:  o.index,
				Err:    o.err,
			})
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	sort.Slice(failed, func(a, b int) bool { return failed[a].Index < failed[b].Index })
	return nil, &ParallelError{Primitive: p.name, Branches: failed}
}

func (p *parallelPrimitive) executeBestEffort(ctx context.Context, input any) (any, error) {
	results := make([]BranchResult, len(p.branches))
	var g errgroup.Group
	for i, branch := range p.branches {
		g.Go(func() error {
			out, err := Invoke(ctx, branch, input)
			results[i] = BranchResult{Branch: branch.Name(), Value: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// MapOption configures a Map primitive.
type MapOption func(*mapPrimitive)

// WithLimit caps how many items a Map processes concurrently. Zero or
// negative means unbounded.
func WithLimit(n int) MapOption {
	return func(p *mapPrimitive) { p.limit = n }
}

type mapPrimitive struct {
	name   string
	mapper Primitive
	limit  int
}

// Map applies mapper to every element of a []any input concurrently and
// returns the mapped values in input order. Any element failure fails the
// whole Map with a ParallelError, after all elements have been attempted.
func Map(name string, mapper Primitive, opts ...MapOption) Primitive {
	if name == "" {
		panic("loom: map name must not be empty")
	}
	if mapper == nil {
		panic(fmt.Sprintf("loom: map %q has a nil mapper", name))
	}
	p := &mapPrimitive{name: name, mapper: mapper}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *mapPrimitive) Name() string { return p.name }
func (p *mapPrimitive) Kind() string { return KindParallel }

func (p *mapPrimitive) Execute(ctx context.Context, input any) (any, error) {
	items, ok := input.([]any)
	if !ok {
		return nil, &ValidationError{
			Primitive: p.name,
			Reason:    fmt.Sprintf("expected []any input, got %T", input),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	results := make([]any, len(items))
	failures := make([]*BranchError, len(items))
	var g errgroup.Group
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i, item := range items {
		g.Go(func() error {
			out, err := Invoke(ctx, p.mapper, item)
			if err != nil {
				failures[i] = &BranchError{
					Branch: fmt.Sprintf("%s[%d]", p.mapper.Name(), i),
					Index:  i,
					Err:    err,
				}
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()
	var failed []*BranchError
	for _, f := range failures {
		if f != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		return nil, &ParallelError{Primitive: p.name, Branches: failed}
	}
	return results, nil
}
