package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/theinterneti/loom/internal/telemetry"
	"github.com/theinterneti/loom/pkg/flow"
)

// engineImpl is a synchronous, in-process engine. Runs execute on the
// caller's goroutine; the execution store tracks them so other goroutines
// can inspect progress.
type engineImpl struct {
	registry *registry
	store    *executionStore
	observer flow.Observer
	metrics  *telemetry.Instruments
}

// Config describes how to construct an engine. Zero values mean a no-op
// observer and the global meter provider.
type Config struct {
	Observer      flow.Observer
	MeterProvider metric.MeterProvider
}

// New returns an in-memory Engine built from cfg.
func New(cfg Config) flow.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = flow.NoopObserver{}
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return &engineImpl{
		registry: newRegistry(),
		store:    newExecutionStore(),
		observer: obs,
		metrics:  telemetry.New(mp),
	}
}

// NewInMemoryEngine returns an Engine with default configuration.
func NewInMemoryEngine() flow.Engine {
	return New(Config{})
}

func (e *engineImpl) Register(wf flow.Workflow) error {
	if wf.Name == "" {
		return errors.New("workflow name is required")
	}
	if wf.Root == nil {
		return fmt.Errorf("workflow %q has no root primitive", wf.Name)
	}
	if wf.Version == "" {
		wf.Version = "v1"
	}
	return e.registry.register(wf)
}

func (e *engineImpl) Run(ctx context.Context, workflow string, input any) (*flow.Execution, error) {
	wf, err := e.registry.getLatest(workflow)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, wf, e.newExecution(wf, input))
}

func (e *engineImpl) RunVersion(ctx context.Context, workflow, version string, input any) (*flow.Execution, error) {
	wf, err := e.registry.get(workflow, version)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, wf, e.newExecution(wf, input))
}

func (e *engineImpl) Execution(_ context.Context, id string) (*flow.Execution, error) {
	return e.store.get(id)
}

func (e *engineImpl) ListExecutions(_ context.Context, opts flow.ExecutionListOptions) ([]*flow.Execution, error) {
	return e.store.list(opts), nil
}

func (e *engineImpl) Resume(ctx context.Context, id string) (*flow.Execution, error) {
	stored, err := e.store.get(id)
	if err != nil {
		return nil, err
	}
	if stored.Status != flow.StatusFailed {
		return nil, fmt.Errorf("execution %q is %s: %w", id, stored.Status, flow.ErrNotResumable)
	}
	wf, err := e.registry.get(stored.Workflow, stored.Version)
	if err != nil {
		return nil, err
	}

	// Replay from the recorded input under the same execution id. The run
	// is a new invocation, so it gets a fresh correlation id.
	exec := *stored
	exec.Status = flow.StatusRunning
	exec.Output = nil
	exec.Err = nil
	exec.CorrelationID = uuid.NewString()
	exec.StartedAt = time.Now()
	exec.EndedAt = time.Time{}
	return e.run(ctx, wf, &exec)
}

func (e *engineImpl) Workflows() []string {
	return e.registry.names()
}

func (e *engineImpl) Versions(workflow string) []string {
	return e.registry.versions(workflow)
}

func (e *engineImpl) newExecution(wf flow.Workflow, input any) *flow.Execution {
	return &flow.Execution{
		ID:            uuid.NewString(),
		Workflow:      wf.Name,
		Version:       wf.Version,
		CorrelationID: uuid.NewString(),
		Status:        flow.StatusRunning,
		Input:         input,
		StartedAt:     time.Now(),
	}
}

func (e *engineImpl) run(ctx context.Context, wf flow.Workflow, exec *flow.Execution) (*flow.Execution, error) {
	e.store.save(exec)
	e.observer.OnWorkflowStart(ctx, exec)

	flowCtx := flow.NewContext(
		flow.WithCorrelationID(exec.CorrelationID),
		flow.WithWorkflowID(wf.Name),
	)
	runCtx := flow.IntoContext(ctx, flowCtx)
	runCtx = flow.WithObserver(runCtx, e.observer)
	runCtx = flow.WithExecution(runCtx, exec)

	out, err := flow.Invoke(runCtx, wf.Root, exec.Input)
	exec.EndedAt = time.Now()
	e.metrics.RecordWorkflow(ctx, wf.Name, err)

	if err != nil {
		exec.Status = flow.StatusFailed
		exec.Err = err
		e.saveResult(exec)
		e.observer.OnWorkflowFailed(ctx, exec, err)
		return exec, err
	}

	exec.Status = flow.StatusCompleted
	exec.Output = out
	e.saveResult(exec)
	e.observer.OnWorkflowCompleted(ctx, exec)
	return exec, nil
}

func (e *engineImpl) saveResult(exec *flow.Execution) {
	// The execution was saved at start, so update cannot miss.
	_ = e.store.update(exec)
}
