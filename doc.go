// Package loom provides a lightweight, embeddable workflow composition
// runtime for Go.
//
// Loom is designed for backend services that orchestrate multi-step
// operations, such as LLM pipelines, data enrichment, or API fan-outs,
// without introducing external infrastructure. Workflows are plain Go
// values built from a small set of primitives, run fully in-process, and
// report what they did through structured logs, OpenTelemetry spans, and
// metrics.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Primitive
//  2. Composition (Sequence, Parallel, If, Switch, Map, loops)
//  3. Resilience (Retry, Fallback, Timeout, Saga, Cache)
//  4. Engine and Execution
//  5. LocalRunner
//
// # Primitive
//
// A Primitive is the fundamental executable unit:
//
//	type Primitive interface {
//	    Name() string
//	    Kind() string
//	    Execute(ctx context.Context, input any) (any, error)
//	}
//
// Leaf tasks wrap plain functions (Step, TypedStep); everything else is
// built by composing primitives. Failures are returned as error values from
// a small taxonomy, never panics: a panicking task surfaces as an
// ExecutionError and a failing parallel branch never tears down its
// siblings.
//
// # Composition
//
// Composites arrange primitives into graphs:
//
//   - Sequence pipes each step's output into the next
//   - Parallel, FirstOf, and BestEffort fan one input out concurrently
//   - Map applies one primitive across a slice concurrently
//   - If and Switch pick branches at runtime
//   - Loop and While repeat a body, including typed variants
//
// Because composites accept any Primitive, all of these nest arbitrarily.
//
// # Resilience
//
// Resilience wrappers change how a primitive fails or repeats without
// touching its logic:
//
//   - Retry re-attempts with constant, linear, or exponential backoff
//   - Fallback tries alternatives in order
//   - Timeout bounds execution time
//   - Saga rolls back completed steps in reverse on failure
//   - Cache memoizes successful results with TTL and LRU bounds
//
// # Engine and Execution
//
// An Engine registers versioned workflows and tracks each run as an
// Execution with an id, status, correlation id, and recorded input and
// output. Runs are synchronous on the caller's goroutine; the LocalRunner
// adds a queue and worker pool for asynchronous runs. Failed executions can
// be re-run with Resume.
//
// Observers receive lifecycle callbacks for every run and primitive, and
// Instrument wraps any primitive with OpenTelemetry spans and metrics.
//
// # LocalRunner
//
// LocalRunner bundles an in-memory engine, queue, and worker pool into a
// single process-local helper, sized from LOOM_* environment variables. It
// is intentionally not crash-durable; it provides the most convenient way
// to run and debug workflows during development and in tests.
//
// For examples, see the /examples directory or the project README.
package loom
