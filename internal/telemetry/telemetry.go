// Package telemetry holds the OpenTelemetry instruments shared by the flow
// primitives and the engine. Instruments are created from a MeterProvider
// once and reused, so wrapping a primitive does not allocate new metric
// streams per call.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

// ScopeName is the instrumentation scope for every tracer and meter the
// module creates.
const ScopeName = "github.com/theinterneti/loom"

// durationBuckets covers sub-10ms cache hits up to 30s LLM calls.
var durationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Instruments bundles the module's metric instruments.
type Instruments struct {
	workflowExecutions  metric.Int64Counter
	primitiveExecutions metric.Int64Counter
	executionDuration   metric.Float64Histogram
	cacheHits           metric.Int64Counter
	cacheMisses         metric.Int64Counter
	llmCost             metric.Float64Counter
}

// New creates the instrument set from mp. Instrument registration only fails
// on malformed names or unit mismatches with an existing registration; when
// that happens the whole set degrades to no-op instruments rather than
// leaving nil instruments behind.
func New(mp metric.MeterProvider) *Instruments {
	ins, err := build(mp.Meter(ScopeName))
	if err != nil {
		ins, _ = build(noopmetric.NewMeterProvider().Meter(ScopeName))
	}
	return ins
}

func build(meter metric.Meter) (*Instruments, error) {
	ins := &Instruments{}
	var err error
	if ins.workflowExecutions, err = meter.Int64Counter(
		"workflow_executions_total",
		metric.WithDescription("Completed workflow runs by name and status."),
	); err != nil {
		return nil, err
	}
	if ins.primitiveExecutions, err = meter.Int64Counter(
		"primitive_executions_total",
		metric.WithDescription("Completed primitive executions by type, name, and status."),
	); err != nil {
		return nil, err
	}
	if ins.executionDuration, err = meter.Float64Histogram(
		"execution_duration_seconds",
		metric.WithDescription("Primitive execution latency by type."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if ins.cacheHits, err = meter.Int64Counter(
		"cache_hits_total",
		metric.WithDescription("Cache primitive lookups served from the store."),
	); err != nil {
		return nil, err
	}
	if ins.cacheMisses, err = meter.Int64Counter(
		"cache_misses_total",
		metric.WithDescription("Cache primitive lookups that invoked the wrapped primitive."),
	); err != nil {
		return nil, err
	}
	if ins.llmCost, err = meter.Float64Counter(
		"llm_cost_total",
		metric.WithDescription("Accumulated model cost in USD by model and provider."),
	); err != nil {
		return nil, err
	}
	return ins, nil
}

// RecordWorkflow counts one finished workflow run.
func (i *Instruments) RecordWorkflow(ctx context.Context, workflow string, err error) {
	i.workflowExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow_name", workflow),
		attribute.String("status", statusLabel(err)),
	))
}

// RecordPrimitive counts one finished primitive execution and records its
// latency.
func (i *Instruments) RecordPrimitive(ctx context.Context, kind, name string, d time.Duration, err error) {
	i.primitiveExecutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("primitive_type", kind),
		attribute.String("primitive_name", name),
		attribute.String("status", statusLabel(err)),
	))
	i.executionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("primitive_type", kind),
	))
}

// CacheHit counts a lookup served from the cache.
func (i *Instruments) CacheHit(ctx context.Context, cache string) {
	i.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache_name", cache)))
}

// CacheMiss counts a lookup that fell through to the wrapped primitive.
func (i *Instruments) CacheMiss(ctx context.Context, cache string) {
	i.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache_name", cache)))
}

// AddLLMCost accumulates reported model spend.
func (i *Instruments) AddLLMCost(ctx context.Context, model, provider string, cost float64) {
	i.llmCost.Add(ctx, cost, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("provider", provider),
	))
}

func statusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
