// Package worker provides the background worker that drives asynchronous
// workflow runs.
//
// Workers consume run requests from a task queue and execute them on an
// engine. They are lightweight and easy to embed in existing services;
// multiple workers can safely consume from the same queue to scale
// processing.
//
// Most applications construct workers via the loom package's LocalRunner,
// which wires an engine, a queue, and a worker pool together with sensible
// defaults. The worker package provides the underlying types for custom
// setups, such as a different pool shape or a shared queue between
// components.
//
// # Responsibilities
//
// A worker is responsible for:
//
//   - Pulling queued run requests
//   - Dispatching each request to the engine, pinned to a version when the
//     request names one
//   - Surfacing the run's failure to the caller of ProcessOne
//
// The engine owns everything else: execution tracking, observer callbacks,
// and the metrics recorded around each run.
//
// # Integration with Engine and Queues
//
// Workers depend only on the flow.Engine interface and the queue.Queue
// interface, so engines and queue implementations can be swapped without
// touching worker code.
package worker
