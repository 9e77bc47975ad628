// Package flow implements composable workflow primitives: small units of
// work behind a uniform execution contract, plus the composition and
// resilience operators that assemble them into graphs.
//
// Everything is a Primitive. Leaf tasks wrap plain functions (Func, Typed);
// composites like Sequence, Parallel, and Route arrange other primitives;
// resilience wrappers like Retry, Fallback, Timeout, Saga, and Cache change
// how a wrapped primitive fails or repeats. Because composites accept any
// Primitive, the operators nest arbitrarily.
//
// Failures are values. A primitive reports failure by returning an error
// from the taxonomy in errors.go, and composites aggregate child failures
// into structured errors (ParallelError, FallbackExhaustedError) instead of
// surfacing only the first one. Panics in user code are recovered into
// ExecutionError values by Invoke, so a failing branch never tears down its
// siblings.
//
// Graphs run directly via Invoke, or under an Engine that tracks each run
// as an Execution and reports lifecycle events to an Observer. Instrument
// adds OpenTelemetry spans and metrics around any primitive without
// changing its behavior.
package flow
