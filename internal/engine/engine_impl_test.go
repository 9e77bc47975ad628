package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/theinterneti/loom/pkg/flow"
)

type SignupInput struct {
	Email string
}

type AccountRecord struct {
	ID    string
	Email string
}

func signupWorkflow() flow.Workflow {
	root := flow.Sequence("signup",
		flow.Func("create-account", func(ctx context.Context, input any) (any, error) {
			in, ok := input.(SignupInput)
			if !ok {
				return nil, fmt.Errorf("expected SignupInput, got %T", input)
			}
			return AccountRecord{ID: "acct-1", Email: in.Email}, nil
		}),
		flow.Func("send-welcome", func(ctx context.Context, input any) (any, error) {
			acct, ok := input.(AccountRecord)
			if !ok {
				return nil, fmt.Errorf("expected AccountRecord, got %T", input)
			}
			return fmt.Sprintf("welcome sent to %s", acct.Email), nil
		}),
	)
	return flow.Workflow{Name: "signup", Root: root}
}

func TestRunCompletesSequentialWorkflow(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	if err := eng.Register(signupWorkflow()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	exec, err := eng.Run(ctx, "signup", SignupInput{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if exec.Status != flow.StatusCompleted {
		t.Fatalf("expected status %q, got %q", flow.StatusCompleted, exec.Status)
	}
	if exec.Output != "welcome sent to alice@example.com" {
		t.Fatalf("unexpected output: %v", exec.Output)
	}
	if exec.ID == "" || exec.CorrelationID == "" {
		t.Fatalf("expected generated ids, got id=%q correlation=%q", exec.ID, exec.CorrelationID)
	}
	if exec.Version != "v1" {
		t.Fatalf("expected default version v1, got %q", exec.Version)
	}
	if exec.EndedAt.Before(exec.StartedAt) {
		t.Fatalf("expected EndedAt >= StartedAt")
	}
}

func TestRunReturnsFailedExecutionAndError(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	boom := errors.New("boom")
	wf := flow.Workflow{
		Name: "failing",
		Root: flow.Func("fail-step", func(ctx context.Context, input any) (any, error) {
			return nil, boom
		}),
	}
	if err := eng.Register(wf); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	exec, err := eng.Run(ctx, "failing", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the step failure, got %v", err)
	}
	if exec == nil {
		t.Fatalf("expected the failed execution alongside the error")
	}
	if exec.Status != flow.StatusFailed {
		t.Fatalf("expected status FAILED, got %q", exec.Status)
	}
	if !errors.Is(exec.Err, boom) {
		t.Fatalf("expected the failure on the execution, got %v", exec.Err)
	}
}

func TestRunUnknownWorkflow(t *testing.T) {
	eng := NewInMemoryEngine()

	_, err := eng.Run(context.Background(), "missing", nil)
	if !errors.Is(err, flow.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	eng := NewInMemoryEngine()
	echo := flow.Func("echo", func(ctx context.Context, input any) (any, error) { return input, nil })

	if err := eng.Register(flow.Workflow{Root: echo}); err == nil {
		t.Fatalf("expected an error for a nameless workflow")
	}
	if err := eng.Register(flow.Workflow{Name: "rootless"}); err == nil {
		t.Fatalf("expected an error for a workflow without a root")
	}

	wf := flow.Workflow{Name: "dup", Root: echo}
	if err := eng.Register(wf); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := eng.Register(wf); err == nil {
		t.Fatalf("expected an error for a duplicate name and version")
	}
}

// Ensure versions coexist: Run picks the most recently registered version
// while RunVersion pins an explicit one.
func TestRunVersionSelectsRegisteredVersion(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	constant := func(v string) flow.Primitive {
		return flow.Func("emit", func(ctx context.Context, input any) (any, error) { return v, nil })
	}
	if err := eng.Register(flow.Workflow{Name: "greeter", Version: "v1", Root: constant("hello v1")}); err != nil {
		t.Fatalf("Register v1 failed: %v", err)
	}
	if err := eng.Register(flow.Workflow{Name: "greeter", Version: "v2", Root: constant("hello v2")}); err != nil {
		t.Fatalf("Register v2 failed: %v", err)
	}

	latest, err := eng.Run(ctx, "greeter", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if latest.Output != "hello v2" || latest.Version != "v2" {
		t.Fatalf("expected the latest version to run, got %v (%s)", latest.Output, latest.Version)
	}

	pinned, err := eng.RunVersion(ctx, "greeter", "v1", nil)
	if err != nil {
		t.Fatalf("RunVersion failed: %v", err)
	}
	if pinned.Output != "hello v1" || pinned.Version != "v1" {
		t.Fatalf("expected the pinned version to run, got %v (%s)", pinned.Output, pinned.Version)
	}

	if _, err := eng.RunVersion(ctx, "greeter", "v9", nil); !errors.Is(err, flow.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound for an unknown version, got %v", err)
	}
}

func TestExecutionReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	if err := eng.Register(signupWorkflow()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	ran, err := eng.Run(ctx, "signup", SignupInput{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := eng.Execution(ctx, ran.ID)
	if err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	if got.ID != ran.ID || got.Status != flow.StatusCompleted {
		t.Fatalf("unexpected execution: %+v", got)
	}

	// Mutating the snapshot must not leak into the store.
	got.Status = flow.StatusRunning
	again, err := eng.Execution(ctx, ran.ID)
	if err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	if again.Status != flow.StatusCompleted {
		t.Fatalf("expected the stored status to be unaffected, got %q", again.Status)
	}

	if _, err := eng.Execution(ctx, "does-not-exist"); !errors.Is(err, flow.ErrExecutionNotFound) {
		t.Fatalf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestListExecutionsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	echo := flow.Func("echo", func(ctx context.Context, input any) (any, error) { return input, nil })
	fail := flow.Func("fail", func(ctx context.Context, input any) (any, error) {
		return nil, errors.New("always fails")
	})
	if err := eng.Register(flow.Workflow{Name: "ok-flow", Root: echo}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := eng.Register(flow.Workflow{Name: "bad-flow", Root: fail}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	first, _ := eng.Run(ctx, "ok-flow", 1)
	_, _ = eng.Run(ctx, "bad-flow", 2)
	third, _ := eng.Run(ctx, "ok-flow", 3)

	all, err := eng.ListExecutions(ctx, flow.ExecutionListOptions{})
	if err != nil {
		t.Fatalf("ListExecutions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 executions, got %d", len(all))
	}
	if all[0].ID != first.ID || all[2].ID != third.ID {
		t.Fatalf("expected insertion order, got %v then %v", all[0].ID, all[2].ID)
	}

	okOnly, err := eng.ListExecutions(ctx, flow.ExecutionListOptions{Workflow: "ok-flow"})
	if err != nil {
		t.Fatalf("ListExecutions failed: %v", err)
	}
	if len(okOnly) != 2 {
		t.Fatalf("expected 2 ok-flow executions, got %d", len(okOnly))
	}

	failed, err := eng.ListExecutions(ctx, flow.ExecutionListOptions{Status: flow.StatusFailed})
	if err != nil {
		t.Fatalf("ListExecutions failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Workflow != "bad-flow" {
		t.Fatalf("expected the single failed execution, got %v", failed)
	}
}

// Ensure Resume replays a failed execution from its recorded input under the
// same id with a fresh correlation id.
func TestResumeReplaysFailedExecution(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	var healthy atomic.Bool
	wf := flow.Workflow{
		Name: "flaky",
		Root: flow.Func("call-dependency", func(ctx context.Context, input any) (any, error) {
			if !healthy.Load() {
				return nil, errors.New("dependency down")
			}
			return fmt.Sprintf("processed %v", input), nil
		}),
	}
	if err := eng.Register(wf); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	failed, err := eng.Run(ctx, "flaky", "order-9")
	if err == nil {
		t.Fatalf("expected the first run to fail")
	}

	healthy.Store(true)
	resumed, err := eng.Resume(ctx, failed.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.ID != failed.ID {
		t.Fatalf("expected Resume to keep the execution id, got %q vs %q", resumed.ID, failed.ID)
	}
	if resumed.CorrelationID == failed.CorrelationID {
		t.Fatalf("expected a fresh correlation id on resume")
	}
	if resumed.Status != flow.StatusCompleted {
		t.Fatalf("expected the resumed run to complete, got %q", resumed.Status)
	}
	if resumed.Output != "processed order-9" {
		t.Fatalf("expected the recorded input to be replayed, got %v", resumed.Output)
	}
	if resumed.Err != nil {
		t.Fatalf("expected the failure to be cleared, got %v", resumed.Err)
	}

	stored, err := eng.Execution(ctx, failed.ID)
	if err != nil {
		t.Fatalf("Execution failed: %v", err)
	}
	if stored.Status != flow.StatusCompleted {
		t.Fatalf("expected the store to reflect the resumed run, got %q", stored.Status)
	}
}

func TestResumeRejectsNonFailedExecutions(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	if err := eng.Register(signupWorkflow()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	done, err := eng.Run(ctx, "signup", SignupInput{Email: "c@example.com"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := eng.Resume(ctx, done.ID); !errors.Is(err, flow.ErrNotResumable) {
		t.Fatalf("expected ErrNotResumable for a completed execution, got %v", err)
	}
	if _, err := eng.Resume(ctx, "does-not-exist"); !errors.Is(err, flow.ErrExecutionNotFound) {
		t.Fatalf("expected ErrExecutionNotFound, got %v", err)
	}
}

func TestWorkflowsAndVersionsAreSorted(t *testing.T) {
	eng := NewInMemoryEngine()
	echo := flow.Func("echo", func(ctx context.Context, input any) (any, error) { return input, nil })

	for _, reg := range []flow.Workflow{
		{Name: "zeta", Root: echo},
		{Name: "alpha", Version: "v2", Root: echo},
		{Name: "alpha", Version: "v1", Root: echo},
	} {
		if err := eng.Register(reg); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	names := eng.Workflows()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("expected sorted names [alpha zeta], got %v", names)
	}
	versions := eng.Versions("alpha")
	if len(versions) != 2 || versions[0] != "v1" || versions[1] != "v2" {
		t.Fatalf("expected sorted versions [v1 v2], got %v", versions)
	}
	if got := eng.Versions("missing"); len(got) != 0 {
		t.Fatalf("expected no versions for an unknown workflow, got %v", got)
	}
}
