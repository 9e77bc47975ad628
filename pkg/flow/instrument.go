package flow

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/theinterneti/loom/internal/telemetry"
)

// CostReport is one model-usage charge attributed to an output.
type CostReport struct {
	Model    string
	Provider string
	Cost     float64
}

// CostReporter is implemented by primitive outputs that carry model spend.
// Instrumented primitives accumulate reported costs into the llm_cost_total
// metric.
type CostReporter interface {
	Cost() []CostReport
}

type instrumentConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// InstrumentOption configures the telemetry providers an instrumented
// primitive uses.
type InstrumentOption func(*instrumentConfig)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) InstrumentOption {
	return func(cfg *instrumentConfig) { cfg.tracerProvider = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) InstrumentOption {
	return func(cfg *instrumentConfig) { cfg.meterProvider = mp }
}

type instrumented struct {
	wrapped Primitive
	tracer  trace.Tracer
	metrics *telemetry.Instruments
}

// Instrument wraps p so every execution opens a span named
// "primitive.<kind>.<name>" and records the execution counters and latency
// histogram. Conditionals are returned unwrapped: they only dispatch, and
// the chosen branch reports the real work. Wrapping an already instrumented
// primitive returns it unchanged.
func Instrument(p Primitive, opts ...InstrumentOption) Primitive {
	if p == nil {
		panic("loom: instrument wraps a nil primitive")
	}
	if p.Kind() == KindConditional {
		return p
	}
	if _, ok := p.(*instrumented); ok {
		return p
	}
	cfg := instrumentConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &instrumented{
		wrapped: p,
		tracer:  cfg.tracerProvider.Tracer(telemetry.ScopeName),
		metrics: telemetry.New(cfg.meterProvider),
	}
}

func (i *instrumented) Name() string { return i.wrapped.Name() }
func (i *instrumented) Kind() string { return i.wrapped.Kind() }

func (i *instrumented) Execute(ctx context.Context, input any) (any, error) {
	ctx, flowCtx := EnsureContext(ctx)

	attrs := []attribute.KeyValue{
		attribute.String("loom.correlation_id", flowCtx.CorrelationID()),
	}
	if workflow := flowCtx.WorkflowID(); workflow != "" {
		attrs = append(attrs, attribute.String("loom.workflow", workflow))
	}
	attrs = append(attrs, inputAttributes(input)...)

	spanName := fmt.Sprintf("primitive.%s.%s", i.wrapped.Kind(), i.wrapped.Name())
	ctx, span := i.tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	out, err := safeExecute(ctx, i.wrapped, input)
	elapsed := time.Since(start)

	i.metrics.RecordPrimitive(ctx, i.wrapped.Kind(), i.wrapped.Name(), elapsed, err)
	span.SetAttributes(attribute.Float64("duration_ms", float64(elapsed)/float64(time.Millisecond)))

	if err != nil {
		span.SetAttributes(
			attribute.String("outcome", "failure"),
			attribute.String("failure.kind", ErrorKind(err)),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("outcome", "success"))
	span.SetStatus(codes.Ok, "")
	if reporter, ok := out.(CostReporter); ok {
		for _, report := range reporter.Cost() {
			i.metrics.AddLLMCost(ctx, report.Model, report.Provider, report.Cost)
		}
	}
	return out, nil
}

// inputAttributes summarizes the input without serializing its contents,
// which may be large or sensitive.
func inputAttributes(input any) []attribute.KeyValue {
	if input == nil {
		return []attribute.KeyValue{attribute.String("input.type", "nil")}
	}
	attrs := []attribute.KeyValue{attribute.String("input.type", fmt.Sprintf("%T", input))}
	switch v := input.(type) {
	case string:
		attrs = append(attrs, attribute.Int("input.size", len(v)))
	case []byte:
		attrs = append(attrs, attribute.Int("input.size", len(v)))
	default:
		rv := reflect.ValueOf(input)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			attrs = append(attrs, attribute.Int("input.size", rv.Len()))
		}
	}
	return attrs
}

// InstrumentTree applies Instrument to root and, for the built-in
// composites, to every child underneath it, so a whole graph reports nested
// spans without wrapping each node by hand.
func InstrumentTree(root Primitive, opts ...InstrumentOption) Primitive {
	switch p := root.(type) {
	case *sequencePrimitive:
		steps := make([]Primitive, len(p.steps))
		for i, s := range p.steps {
			steps[i] = InstrumentTree(s, opts...)
		}
		return Instrument(&sequencePrimitive{name: p.name, steps: steps}, opts...)
	case *parallelPrimitive:
		branches := make([]Primitive, len(p.branches))
		for i, b := range p.branches {
			branches[i] = InstrumentTree(b, opts...)
		}
		return Instrument(&parallelPrimitive{name: p.name, branches: branches, strategy: p.strategy}, opts...)
	case *mapPrimitive:
		return Instrument(&mapPrimitive{
			name:   p.name,
			mapper: InstrumentTree(p.mapper, opts...),
			limit:  p.limit,
		}, opts...)
	case *conditionalPrimitive:
		next := &conditionalPrimitive{
			name:      p.name,
			predicate: p.predicate,
			then:      InstrumentTree(p.then, opts...),
		}
		if p.otherwise != nil {
			next.otherwise = InstrumentTree(p.otherwise, opts...)
		}
		return next
	case *routerPrimitive:
		routes := make(map[string]Primitive, len(p.routes))
		for key, dest := range p.routes {
			routes[key] = InstrumentTree(dest, opts...)
		}
		return Instrument(&routerPrimitive{
			name:       p.name,
			selector:   p.selector,
			routes:     routes,
			defaultKey: p.defaultKey,
			hasDefault: p.hasDefault,
		}, opts...)
	case *retryPrimitive:
		return Instrument(&retryPrimitive{
			name:      p.name,
			wrapped:   InstrumentTree(p.wrapped, opts...),
			policy:    p.policy,
			retryable: p.retryable,
		}, opts...)
	case *fallbackPrimitive:
		chain := make([]Primitive, len(p.chain))
		for i, c := range p.chain {
			chain[i] = InstrumentTree(c, opts...)
		}
		return Instrument(&fallbackPrimitive{name: p.name, chain: chain}, opts...)
	case *timeoutPrimitive:
		return Instrument(&timeoutPrimitive{
			name:    p.name,
			wrapped: InstrumentTree(p.wrapped, opts...),
			limit:   p.limit,
		}, opts...)
	case *sagaPrimitive:
		steps := make([]SagaStep, len(p.steps))
		for i, st := range p.steps {
			steps[i] = SagaStep{Name: st.Name, Forward: InstrumentTree(st.Forward, opts...)}
			if st.Compensate != nil {
				steps[i].Compensate = InstrumentTree(st.Compensate, opts...)
			}
		}
		return Instrument(&sagaPrimitive{name: p.name, steps: steps}, opts...)
	case *whilePrimitive:
		return Instrument(&whilePrimitive{
			name:          p.name,
			condition:     p.condition,
			body:          InstrumentTree(p.body, opts...),
			maxIterations: p.maxIterations,
		}, opts...)
	case *loopPrimitive:
		return Instrument(&loopPrimitive{
			name:  p.name,
			times: p.times,
			body:  InstrumentTree(p.body, opts...),
		}, opts...)
	default:
		return Instrument(root, opts...)
	}
}
