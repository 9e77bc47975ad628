package loom

import (
	"fmt"

	"github.com/theinterneti/loom/pkg/flow"
)

// FlowBuilder provides a fluent API for defining workflows:
//
//	wf := loom.New("enrich-order").
//	    Step("fetch", fetchOrder).
//	    Then(loom.Retry(3).WithExponentialBackoff(100*time.Millisecond, 2*time.Second).
//	        Wrap("score", loom.Step("score", scoreOrder))).
//	    Step("persist", persistOrder)
//
//	if err := wf.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
//
//	exec, err := loom.Run(ctx, engine, wf.Name(), input)
type FlowBuilder struct {
	name           string
	version        string
	steps          []flow.Primitive
	instrumented   bool
	instrumentOpts []flow.InstrumentOption
}

// New creates a new workflow builder with the given name.
func New(name string) *FlowBuilder {
	if name == "" {
		panic("loom: workflow name must not be empty")
	}
	return &FlowBuilder{name: name, version: "v1"}
}

// Name returns the workflow name.
func (b *FlowBuilder) Name() string {
	return b.name
}

// Version sets the workflow version registered by Build.
func (b *FlowBuilder) Version(version string) *FlowBuilder {
	if version == "" {
		panic(fmt.Sprintf("loom: workflow %q version must not be empty", b.name))
	}
	b.version = version
	return b
}

// Step appends a leaf task built from fn.
func (b *FlowBuilder) Step(name string, fn Fn) *FlowBuilder {
	return b.Then(flow.Func(name, fn))
}

// Then appends a prebuilt primitive, composite or leaf.
func (b *FlowBuilder) Then(p Primitive) *FlowBuilder {
	if p == nil {
		panic(fmt.Sprintf("loom: workflow %q given a nil primitive", b.name))
	}
	b.steps = append(b.steps, p)
	return b
}

// StepWithRetry appends a step that retries per policy.
func (b *FlowBuilder) StepWithRetry(name string, fn Fn, policy RetryPolicy) *FlowBuilder {
	return b.Then(flow.Retry(name, flow.Func(name, fn), policy))
}

// Parallel appends a step that runs branches concurrently and collects all
// outputs.
func (b *FlowBuilder) Parallel(name string, branches ...Primitive) *FlowBuilder {
	return b.Then(flow.Parallel(name, branches...))
}

// If appends a conditional branching step. elseStep may be nil to pass the
// input through when the condition is false.
func (b *FlowBuilder) If(name string, cond Predicate, thenStep, elseStep Primitive) *FlowBuilder {
	return b.Then(flow.If(name, cond, thenStep, elseStep))
}

// Switch appends a multi-branch step based on a selector and route map.
func (b *FlowBuilder) Switch(name string, selector Selector, routes map[string]Primitive, opts ...flow.RouterOption) *FlowBuilder {
	return b.Then(flow.Route(name, selector, routes, opts...))
}

// While appends a loop step that repeats body while cond holds for the
// current value.
func (b *FlowBuilder) While(name string, cond Predicate, body Primitive, opts ...flow.LoopOption) *FlowBuilder {
	return b.Then(flow.While(name, cond, body, opts...))
}

// Loop appends a step that runs body a fixed number of times.
func (b *FlowBuilder) Loop(name string, times int, body Primitive) *FlowBuilder {
	return b.Then(flow.Loop(name, times, body))
}

// Instrumented makes Build wrap the workflow graph with OpenTelemetry spans
// and metrics, node by node.
func (b *FlowBuilder) Instrumented(opts ...flow.InstrumentOption) *FlowBuilder {
	b.instrumented = true
	b.instrumentOpts = opts
	return b
}

// Build assembles the workflow. A single step becomes the root directly;
// multiple steps are chained into a sequence named after the workflow.
func (b *FlowBuilder) Build() Workflow {
	if len(b.steps) == 0 {
		panic(fmt.Sprintf("loom: workflow %q has no steps", b.name))
	}
	var root flow.Primitive
	if len(b.steps) == 1 {
		root = b.steps[0]
	} else {
		root = flow.Sequence(b.name, b.steps...)
	}
	if b.instrumented {
		root = flow.InstrumentTree(root, b.instrumentOpts...)
	}
	return Workflow{Name: b.name, Version: b.version, Root: root}
}

// Register registers the built workflow with the given engine.
func (b *FlowBuilder) Register(eng Engine) error {
	return eng.Register(b.Build())
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *FlowBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}
