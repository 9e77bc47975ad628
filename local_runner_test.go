package loom

import (
	"context"
	"testing"
	"time"
)

// TestLocalRunner_SyncAndAsync verifies that LocalRunner can run workflows
// both synchronously (direct Run) and asynchronously via RunAsync + worker
// loop.
func TestLocalRunner_SyncAndAsync(t *testing.T) {
	runner := NewLocalRunner()

	// Simple workflow: (n + 1) * 2
	wf := New("localrunner-sync-async").
		Step("inc", func(ctx context.Context, input any) (any, error) {
			n, ok := input.(int)
			if !ok {
				t.Fatalf("inc: expected int input, got %T", input)
			}
			return n + 1, nil
		}).
		Step("double", func(ctx context.Context, input any) (any, error) {
			n, ok := input.(int)
			if !ok {
				t.Fatalf("double: expected int input, got %T", input)
			}
			return n * 2, nil
		})

	wf.MustRegister(runner.Engine)

	ctx := context.Background()

	// --- Synchronous run ---

	syncExec, err := Run(ctx, runner.Engine, wf.Name(), 1)
	if err != nil {
		t.Fatalf("sync Run failed: %v", err)
	}

	if syncExec.Status != StatusCompleted {
		t.Fatalf("expected sync execution status %v, got %v", StatusCompleted, syncExec.Status)
	}

	out, ok := syncExec.Output.(int)
	if !ok {
		t.Fatalf("expected int output from sync execution, got %T (%v)", syncExec.Output, syncExec.Output)
	}
	// (1 + 1) * 2 = 4
	if out != 4 {
		t.Fatalf("expected sync output 4, got %d", out)
	}

	// --- Asynchronous run via worker/queue ---

	if err := runner.StartWorkers(ctx, 2); err != nil {
		t.Fatalf("StartWorkers failed: %v", err)
	}
	defer runner.Stop()

	if err := runner.RunAsync(ctx, wf.Name(), 3); err != nil {
		t.Fatalf("RunAsync failed: %v", err)
	}

	// Poll for the async execution to appear and complete.
	deadline := time.Now().Add(2 * time.Second)
	var asyncExec *Execution

	for time.Now().Before(deadline) {
		execs, err := ListExecutions(ctx, runner.Engine, ExecutionListOptions{Workflow: wf.Name()})
		if err != nil {
			t.Fatalf("ListExecutions failed: %v", err)
		}

		for _, exec := range execs {
			if exec.Status != StatusCompleted {
				continue
			}
			// For input=3: (3 + 1) * 2 = 8
			if v, ok := exec.Output.(int); ok && v == 8 {
				asyncExec = exec
				break
			}
		}

		if asyncExec != nil {
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	if asyncExec == nil {
		t.Fatalf("did not observe completed async execution with expected output before timeout")
	}
}

// TestLocalRunner_RunVersionAsync verifies that async runs can pin an
// explicit workflow version.
func TestLocalRunner_RunVersionAsync(t *testing.T) {
	runner := NewLocalRunner()
	ctx := context.Background()

	New("versioned-async").
		Step("v1-step", func(ctx context.Context, input any) (any, error) {
			return "v1-output", nil
		}).
		MustRegister(runner.Engine)

	New("versioned-async").
		Version("v2").
		Step("v2-step", func(ctx context.Context, input any) (any, error) {
			return "v2-output", nil
		}).
		MustRegister(runner.Engine)

	if err := runner.StartWorkers(ctx, 1); err != nil {
		t.Fatalf("StartWorkers failed: %v", err)
	}
	defer runner.Stop()

	if err := runner.RunVersionAsync(ctx, "versioned-async", "v1", nil); err != nil {
		t.Fatalf("RunVersionAsync failed: %v", err)
	}

	var pinned *Execution
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		execs, err := ListExecutions(ctx, runner.Engine, ExecutionListOptions{Workflow: "versioned-async"})
		if err != nil {
			t.Fatalf("ListExecutions failed: %v", err)
		}
		for _, exec := range execs {
			if exec.Status == StatusCompleted {
				pinned = exec
				break
			}
		}
		if pinned != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if pinned == nil {
		t.Fatalf("did not observe completed pinned execution before timeout")
	}
	if pinned.Version != "v1" {
		t.Fatalf("expected pinned version v1, got %q", pinned.Version)
	}
	if pinned.Output != "v1-output" {
		t.Fatalf("expected v1 output, got %v", pinned.Output)
	}
}

// TestLocalRunner_StartWorkersTwice ensures that StartWorkers cannot be
// called twice without Stop in between.
func TestLocalRunner_StartWorkersTwice(t *testing.T) {
	runner := NewLocalRunner()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer runner.Stop()

	if err := runner.StartWorkers(ctx, 1); err != nil {
		t.Fatalf("first StartWorkers failed: %v", err)
	}

	if err := runner.StartWorkers(ctx, 1); err == nil {
		t.Fatalf("expected error from second StartWorkers call, got nil")
	}
}

// TestLocalRunner_StopWithoutStart ensures Stop is safe when workers were
// never started.
func TestLocalRunner_StopWithoutStart(t *testing.T) {
	runner := NewLocalRunner()
	// Should not panic or deadlock.
	runner.Stop()
}

// TestLocalRunner_StopThenRestart ensures the runner can be started again
// after a clean Stop.
func TestLocalRunner_StopThenRestart(t *testing.T) {
	runner := NewLocalRunner()
	ctx := context.Background()

	if err := runner.StartWorkers(ctx, 1); err != nil {
		t.Fatalf("first StartWorkers failed: %v", err)
	}
	runner.Stop()

	if err := runner.StartWorkers(ctx, 1); err != nil {
		t.Fatalf("StartWorkers after Stop failed: %v", err)
	}
	runner.Stop()
}
