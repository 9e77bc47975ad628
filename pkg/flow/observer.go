package flow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives lifecycle callbacks for workflow runs and the primitives
// executed within them. Implementations must be safe for concurrent use and
// should return quickly; callbacks run on the execution path.
type Observer interface {
	// OnWorkflowStart fires when an execution begins.
	OnWorkflowStart(ctx context.Context, exec *Execution)
	// OnWorkflowCompleted fires when an execution finishes successfully.
	OnWorkflowCompleted(ctx context.Context, exec *Execution)
	// OnWorkflowFailed fires when an execution fails.
	OnWorkflowFailed(ctx context.Context, exec *Execution, err error)
	// OnPrimitiveStart fires before each primitive in the run executes.
	OnPrimitiveStart(ctx context.Context, exec *Execution, name, kind string)
	// OnPrimitiveCompleted fires after each primitive in the run executes,
	// with its error (nil on success) and wall-clock duration.
	OnPrimitiveCompleted(ctx context.Context, exec *Execution, name, kind string, err error, duration time.Duration)
}

// NoopObserver ignores every callback.
type NoopObserver struct{}

func (NoopObserver) OnWorkflowStart(context.Context, *Execution) {}

func (NoopObserver) OnWorkflowCompleted(context.Context, *Execution) {}

func (NoopObserver) OnWorkflowFailed(context.Context, *Execution, error) {}

func (NoopObserver) OnPrimitiveStart(context.Context, *Execution, string, string) {}

func (NoopObserver) OnPrimitiveCompleted(context.Context, *Execution, string, string, error, time.Duration) {
}

// CompositeObserver fans callbacks out to several observers in order.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver bundles observers into one. Nil entries are dropped;
// zero remaining observers yields a NoopObserver and exactly one is returned
// directly.
func NewCompositeObserver(observers ...Observer) Observer {
	kept := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			kept = append(kept, obs)
		}
	}
	switch len(kept) {
	case 0:
		return NoopObserver{}
	case 1:
		return kept[0]
	default:
		return &CompositeObserver{observers: kept}
	}
}

func (c *CompositeObserver) OnWorkflowStart(ctx context.Context, exec *Execution) {
	for _, obs := range c.observers {
		obs.OnWorkflowStart(ctx, exec)
	}
}

func (c *CompositeObserver) OnWorkflowCompleted(ctx context.Context, exec *Execution) {
	for _, obs := range c.observers {
		obs.OnWorkflowCompleted(ctx, exec)
	}
}

func (c *CompositeObserver) OnWorkflowFailed(ctx context.Context, exec *Execution, err error) {
	for _, obs := range c.observers {
		obs.OnWorkflowFailed(ctx, exec, err)
	}
}

func (c *CompositeObserver) OnPrimitiveStart(ctx context.Context, exec *Execution, name, kind string) {
	for _, obs := range c.observers {
		obs.OnPrimitiveStart(ctx, exec, name, kind)
	}
}

func (c *CompositeObserver) OnPrimitiveCompleted(ctx context.Context, exec *Execution, name, kind string, err error, duration time.Duration) {
	for _, obs := range c.observers {
		obs.OnPrimitiveCompleted(ctx, exec, name, kind, err, duration)
	}
}

// LoggingObserver emits structured log lines for lifecycle events: workflow
// events at info, primitive events at debug, failures at error.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver builds a LoggingObserver; a nil logger means
// slog.Default.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

func (l *LoggingObserver) OnWorkflowStart(ctx context.Context, exec *Execution) {
	l.logger.InfoContext(ctx, "workflow_start",
		slog.String("workflow", exec.Workflow),
		slog.String("execution_id", exec.ID),
		slog.String("correlation_id", exec.CorrelationID),
	)
}

func (l *LoggingObserver) OnWorkflowCompleted(ctx context.Context, exec *Execution) {
	l.logger.InfoContext(ctx, "workflow_completed",
		slog.String("workflow", exec.Workflow),
		slog.String("execution_id", exec.ID),
		slog.Duration("duration", exec.EndedAt.Sub(exec.StartedAt)),
	)
}

func (l *LoggingObserver) OnWorkflowFailed(ctx context.Context, exec *Execution, err error) {
	l.logger.ErrorContext(ctx, "workflow_failed",
		slog.String("workflow", exec.Workflow),
		slog.String("execution_id", exec.ID),
		slog.String("error", err.Error()),
		slog.String("error_kind", ErrorKind(err)),
	)
}

func (l *LoggingObserver) OnPrimitiveStart(ctx context.Context, exec *Execution, name, kind string) {
	l.logger.DebugContext(ctx, "primitive_start",
		slog.String("primitive", name),
		slog.String("kind", kind),
		slog.String("execution_id", exec.ID),
	)
}

func (l *LoggingObserver) OnPrimitiveCompleted(ctx context.Context, exec *Execution, name, kind string, err error, duration time.Duration) {
	if err != nil {
		l.logger.ErrorContext(ctx, "primitive_failed",
			slog.String("primitive", name),
			slog.String("kind", kind),
			slog.String("execution_id", exec.ID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	l.logger.DebugContext(ctx, "primitive_completed",
		slog.String("primitive", name),
		slog.String("kind", kind),
		slog.String("execution_id", exec.ID),
		slog.Duration("duration", duration),
	)
}

// BasicMetrics counts lifecycle events with atomics, for callers that want
// cheap in-process counters without an OpenTelemetry pipeline.
type BasicMetrics struct {
	workflowsStarted    atomic.Int64
	workflowsCompleted  atomic.Int64
	workflowsFailed     atomic.Int64
	primitivesSucceeded atomic.Int64
	primitivesFailed    atomic.Int64
	primitiveNanos      atomic.Int64
}

// MetricsSnapshot is a point-in-time view of a BasicMetrics observer.
type MetricsSnapshot struct {
	WorkflowsStarted   int64
	WorkflowsCompleted int64
	WorkflowsFailed    int64
	// PendingWorkflows counts runs that started but have not finished.
	PendingWorkflows    int64
	PrimitivesSucceeded int64
	PrimitivesFailed    int64
	// AvgPrimitiveDuration averages over successful primitives only.
	AvgPrimitiveDuration time.Duration
}

func NewBasicMetrics() *BasicMetrics { return &BasicMetrics{} }

func (m *BasicMetrics) OnWorkflowStart(context.Context, *Execution) {
	m.workflowsStarted.Add(1)
}

func (m *BasicMetrics) OnWorkflowCompleted(context.Context, *Execution) {
	m.workflowsCompleted.Add(1)
}

func (m *BasicMetrics) OnWorkflowFailed(context.Context, *Execution, error) {
	m.workflowsFailed.Add(1)
}

func (m *BasicMetrics) OnPrimitiveStart(context.Context, *Execution, string, string) {}

func (m *BasicMetrics) OnPrimitiveCompleted(_ context.Context, _ *Execution, _, _ string, err error, duration time.Duration) {
	if err != nil {
		m.primitivesFailed.Add(1)
		return
	}
	m.primitivesSucceeded.Add(1)
	m.primitiveNanos.Add(int64(duration))
}

// Snapshot returns the current counter values.
func (m *BasicMetrics) Snapshot() MetricsSnapshot {
	started := m.workflowsStarted.Load()
	completed := m.workflowsCompleted.Load()
	failed := m.workflowsFailed.Load()
	succeeded := m.primitivesSucceeded.Load()
	snap := MetricsSnapshot{
		WorkflowsStarted:    started,
		WorkflowsCompleted:  completed,
		WorkflowsFailed:     failed,
		PendingWorkflows:    started - completed - failed,
		PrimitivesSucceeded: succeeded,
		PrimitivesFailed:    m.primitivesFailed.Load(),
	}
	if succeeded > 0 {
		snap.AvgPrimitiveDuration = time.Duration(m.primitiveNanos.Load() / succeeded)
	}
	return snap
}
