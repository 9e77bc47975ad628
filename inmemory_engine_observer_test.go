package loom

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestInMemoryEngineWithObserverAndBasicMetrics verifies that:
//   - NewInMemoryEngineWithObserver is usable from public API
//   - BasicMetrics sees expected workflow/primitive counts
//   - The builder and Run helpers work end-to-end without any external infra.
func TestInMemoryEngineWithObserverAndBasicMetrics(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := NewBasicMetrics()

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	observer := NewCompositeObserver(
		NewLoggingObserver(logger),
		metrics,
	)

	engine := NewInMemoryEngineWithObserver(observer)

	// Simple 2-step workflow.
	wf := New("inmemory-metrics-workflow").
		Step("first", func(ctx context.Context, input any) (any, error) {
			time.Sleep(1 * time.Millisecond)
			return "ok", nil
		}).
		Step("second", func(ctx context.Context, input any) (any, error) {
			time.Sleep(1 * time.Millisecond)
			return input, nil
		})

	require.NoError(t, wf.Register(engine), "Register should succeed")

	exec, err := Run(ctx, engine, wf.Name(), nil)
	require.NoError(t, err, "Run should succeed")
	require.NotNil(t, exec, "execution should not be nil")
	require.Equal(t, StatusCompleted, exec.Status, "workflow should complete successfully")

	snap := metrics.Snapshot()

	require.Equal(t, int64(1), snap.WorkflowsStarted, "expected exactly 1 workflow started")
	require.Equal(t, int64(1), snap.WorkflowsCompleted, "expected exactly 1 workflow completed")
	require.Equal(t, int64(0), snap.WorkflowsFailed, "expected 0 workflow failures")
	require.Equal(t, int64(0), snap.PendingWorkflows, "expected 0 pending workflows")
	// Root sequence plus both steps.
	require.Equal(t, int64(3), snap.PrimitivesSucceeded, "expected 3 primitives succeeded")
	require.Greater(t, snap.AvgPrimitiveDuration, time.Duration(0), "expected AvgPrimitiveDuration > 0")
}

// TestInMemoryEngineWithNilLoggerObserver ensures that NewLoggingObserver(nil)
// is safe to use (it should fall back to slog.Default or similar behaviour)
// and that workflows still run successfully.
func TestInMemoryEngineWithNilLoggerObserver(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := &BasicMetrics{}

	observer := NewCompositeObserver(
		NewLoggingObserver(nil), // should not panic or misbehave
		metrics,
	)

	engine := NewInMemoryEngineWithObserver(observer)

	wf := New("nil-logger-workflow").
		Step("only-step", func(ctx context.Context, input any) (any, error) {
			return "done", nil
		})

	require.NoError(t, wf.Register(engine))

	exec, err := Run(ctx, engine, wf.Name(), nil)
	require.NoError(t, err)
	require.NotNil(t, exec)
	require.Equal(t, StatusCompleted, exec.Status)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.WorkflowsCompleted)
	require.Equal(t, int64(1), snap.PrimitivesSucceeded)
}

// TestInMemoryEngineObserverSeesFailure ensures failure hooks fire through
// the public API when a workflow step fails.
func TestInMemoryEngineObserverSeesFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metrics := NewBasicMetrics()
	engine := NewInMemoryEngineWithObserver(metrics)

	wf := New("observer-failure-workflow").
		Step("boom", func(ctx context.Context, input any) (any, error) {
			return nil, context.DeadlineExceeded
		})

	require.NoError(t, wf.Register(engine))

	exec, err := Run(ctx, engine, wf.Name(), nil)
	require.Error(t, err)
	require.NotNil(t, exec)
	require.Equal(t, StatusFailed, exec.Status)

	snap := metrics.Snapshot()
	require.Equal(t, int64(1), snap.WorkflowsStarted)
	require.Equal(t, int64(1), snap.WorkflowsFailed)
	require.Equal(t, int64(0), snap.WorkflowsCompleted)
	require.Equal(t, int64(1), snap.PrimitivesFailed)
}
