package loom

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/theinterneti/loom/internal/config"
	"github.com/theinterneti/loom/internal/engine"
	"github.com/theinterneti/loom/internal/queue"
	"github.com/theinterneti/loom/pkg/worker"
)

// LocalRunner bundles an in-memory Engine, an in-memory task queue, and a
// worker pool to provide a simple single-process runtime.
//
// Typical usage:
//
//	runner := loom.NewLocalRunner()
//	wf := loom.New("my-flow").Step(...)
//	wf.MustRegister(runner.Engine)
//
//	// Synchronous run (no queue/worker involved):
//	exec, err := loom.Run(ctx, runner.Engine, wf.Name(), input)
//
//	// Asynchronous run:
//	_ = runner.StartWorkers(ctx, 2)
//	_ = runner.RunAsync(ctx, wf.Name(), input)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory workflow engine used by this runner.
	Engine Engine

	// Queue is the task queue feeding the workers.
	Queue queue.Queue

	// Worker processes tasks from Queue using Engine.
	Worker *worker.Worker

	defaultWorkers int

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

// NewLocalRunner constructs a LocalRunner sized from the LOOM_* environment
// variables (queue capacity, default worker count).
//
// This is intended for local development, tests, and simple single-process
// deployments.
func NewLocalRunner() *LocalRunner {
	return NewLocalRunnerWithObserver(nil)
}

// NewLocalRunnerWithObserver is NewLocalRunner with an Observer wired into
// the engine. A nil observer behaves like NewLocalRunner.
func NewLocalRunnerWithObserver(obs Observer) *LocalRunner {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("loom: invalid environment config, using defaults", "error", err)
		cfg = config.Default()
	}
	eng := engine.New(engine.Config{Observer: obs})
	q := queue.NewInMemoryQueue(cfg.QueueCapacity)

	return &LocalRunner{
		Engine:         eng,
		Queue:          q,
		Worker:         worker.New(eng, q),
		defaultWorkers: cfg.Workers,
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously call
// Worker.ProcessOne(ctx) until the context is cancelled via Stop.
// concurrency <= 0 uses the LOOM_WORKERS default.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("loom: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = r.defaultWorkers
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.group = new(errgroup.Group)

	for i := 0; i < concurrency; i++ {
		r.group.Go(func() error {
			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if err != nil {
					// For the local runner, cancellation is a clean
					// shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return nil
					}
					// A failed workflow must not kill the worker loop.
					slog.Error("loom: local runner worker error", "error", err)
					continue
				}
				if !processed {
					// Dequeue returned nothing; loop back and block again.
					continue
				}
			}
		})
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	group := r.group
	r.running = false
	r.cancel = nil
	r.group = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if group != nil {
		_ = group.Wait()
	}
}

// RunAsync enqueues a run of the named workflow's latest version.
// The workflow must already be registered on LocalRunner.Engine.
func (r *LocalRunner) RunAsync(ctx context.Context, workflow string, input any) error {
	return r.Worker.EnqueueRun(ctx, workflow, input)
}

// RunVersionAsync enqueues a run pinned to an explicit workflow version.
func (r *LocalRunner) RunVersionAsync(ctx context.Context, workflow, version string, input any) error {
	return r.Worker.EnqueueRunVersion(ctx, workflow, version, input)
}
