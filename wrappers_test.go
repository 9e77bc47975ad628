package loom

import (
	"context"
	"errors"
	"testing"
)

// Ensure the package-level engine wrappers cover the full run lifecycle:
// run, fetch, list, and resume.
func TestTopLevelWrappers_RunGetListResume(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	healthy := false
	New("ship-order").
		Step("reserve", func(ctx context.Context, input any) (any, error) {
			return input, nil
		}).
		Step("dispatch", func(ctx context.Context, input any) (any, error) {
			if !healthy {
				return nil, errors.New("courier api down")
			}
			return "shipped", nil
		}).
		MustRegister(eng)

	// First run fails at the dispatch step.
	failed, err := Run(ctx, eng, "ship-order", "order-55")
	if err == nil {
		t.Fatalf("expected the first run to fail")
	}
	if failed == nil || failed.Status != StatusFailed {
		t.Fatalf("expected a failed execution snapshot, got %+v", failed)
	}

	// GetExecution returns the stored snapshot.
	got, err := GetExecution(ctx, eng, failed.ID)
	if err != nil {
		t.Fatalf("GetExecution failed: %v", err)
	}
	if got.ID != failed.ID || got.Status != StatusFailed {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	// ListExecutions sees the run.
	execs, err := ListExecutions(ctx, eng, ExecutionListOptions{Workflow: "ship-order"})
	if err != nil {
		t.Fatalf("ListExecutions failed: %v", err)
	}
	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}

	// After the dependency recovers, Resume finishes the run under the
	// same execution id.
	healthy = true
	resumed, err := Resume(ctx, eng, failed.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.ID != failed.ID {
		t.Fatalf("expected resumed run to keep id %s, got %s", failed.ID, resumed.ID)
	}
	if resumed.Status != StatusCompleted || resumed.Output != "shipped" {
		t.Fatalf("unexpected resumed execution: %+v", resumed)
	}
}

func TestTopLevelWrappers_RunVersion(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	New("pricing").
		Step("v1-price", func(ctx context.Context, input any) (any, error) {
			return 100, nil
		}).
		MustRegister(eng)
	New("pricing").
		Version("v2").
		Step("v2-price", func(ctx context.Context, input any) (any, error) {
			return 90, nil
		}).
		MustRegister(eng)

	exec, err := RunVersion(ctx, eng, "pricing", "v1", nil)
	if err != nil {
		t.Fatalf("RunVersion failed: %v", err)
	}
	if exec.Output != 100 {
		t.Fatalf("expected the pinned v1 price, got %v", exec.Output)
	}

	latest, err := Run(ctx, eng, "pricing", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if latest.Output != 90 {
		t.Fatalf("expected the latest v2 price, got %v", latest.Output)
	}
}
