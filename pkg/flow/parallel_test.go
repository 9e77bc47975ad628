package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func sleeper(name string, d time.Duration, out any) Primitive {
	return Func(name, func(ctx context.Context, input any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
			return out, nil
		}
	})
}

func TestParallelCollectsOutputsInBranchOrder(t *testing.T) {
	p := Parallel("fanout",
		sleeper("slow", 30*time.Millisecond, "first"),
		sleeper("fast", time.Millisecond, "second"),
		Mock("instant", Returns("third")),
	)

	out, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := out.([]any)
	if !ok {
		t.Fatalf("expected []any output, got %T", out)
	}
	want := []any{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d outputs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected output %d to be %v, got %v", i, want[i], got[i])
		}
	}
}

// Ensure a failing branch fails the whole Parallel with every failure
// aggregated, ordered by branch index.
func TestParallelAggregatesFailures(t *testing.T) {
	errA := errors.New("a down")
	errC := errors.New("c down")

	p := Parallel("fanout",
		Mock("a", Fails(errA)),
		Mock("b", Returns("ok")),
		Mock("c", Fails(errC)),
	)

	_, err := p.Execute(context.Background(), nil)
	var parErr *ParallelError
	if !errors.As(err, &parErr) {
		t.Fatalf("expected ParallelError, got %T (%v)", err, err)
	}
	if len(parErr.Branches) != 2 {
		t.Fatalf("expected 2 failed branches, got %d", len(parErr.Branches))
	}
	if parErr.Branches[0].Index != 0 || parErr.Branches[0].Branch != "a" {
		t.Fatalf("unexpected first failure: %+v", parErr.Branches[0])
	}
	if parErr.Branches[1].Index != 2 || parErr.Branches[1].Branch != "c" {
		t.Fatalf("unexpected second failure: %+v", parErr.Branches[1])
	}
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Fatalf("expected both branch causes to be reachable via errors.Is")
	}
}

// Ensure Parallel waits for the remaining branches after one fails instead of
// cancelling them.
func TestParallelWaitsForAllBranches(t *testing.T) {
	var slowFinished atomic.Bool

	p := Parallel("fanout",
		Mock("fail", Fails(errors.New("fast failure"))),
		Func("slow", func(ctx context.Context, input any) (any, error) {
			time.Sleep(20 * time.Millisecond)
			slowFinished.Store(true)
			return "done", nil
		}),
	)

	if _, err := p.Execute(context.Background(), nil); err == nil {
		t.Fatalf("expected failure")
	}
	if !slowFinished.Load() {
		t.Fatalf("expected the slow branch to run to completion")
	}
}

func TestFirstOfReturnsFirstSuccess(t *testing.T) {
	p := FirstOf("race",
		sleeper("slow", 200*time.Millisecond, "slow"),
		sleeper("fast", time.Millisecond, "fast"),
	)

	start := time.Now()
	out, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "fast" {
		t.Fatalf("expected the fast branch to win, got %v", out)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected FirstOf to return before the slow branch, took %s", elapsed)
	}
}

// Ensure FirstOf skips early failures and still returns a later success.
func TestFirstOfSkipsFailures(t *testing.T) {
	p := FirstOf("race",
		Mock("down", Fails(errors.New("down"))),
		sleeper("late", 10*time.Millisecond, "late win"),
	)

	out, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "late win" {
		t.Fatalf("expected the late branch to win, got %v", out)
	}
}

func TestFirstOfFailsWhenAllBranchesFail(t *testing.T) {
	p := FirstOf("race",
		Mock("a", Fails(errors.New("a down"))),
		Mock("b", Fails(errors.New("b down"))),
	)

	_, err := p.Execute(context.Background(), nil)
	var parErr *ParallelError
	if !errors.As(err, &parErr) {
		t.Fatalf("expected ParallelError, got %T (%v)", err, err)
	}
	if len(parErr.Branches) != 2 {
		t.Fatalf("expected 2 failed branches, got %d", len(parErr.Branches))
	}
	for i, b := range parErr.Branches {
		if b.Index != i {
			t.Fatalf("expected failures ordered by index, got %+v at %d", b, i)
		}
	}
}

func TestBestEffortCollectsPerBranchOutcomes(t *testing.T) {
	down := errors.New("down")
	p := BestEffort("survey",
		Mock("ok", Returns(1)),
		Mock("bad", Fails(down)),
		Mock("fine", Returns(3)),
	)

	out, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected BestEffort to always succeed, got %v", err)
	}
	results, ok := out.([]BranchResult)
	if !ok {
		t.Fatalf("expected []BranchResult output, got %T", out)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Branch != "ok" || results[0].Value != 1 || results[0].Err != nil {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Branch != "bad" || !errors.Is(results[1].Err, down) {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
	if results[2].Value != 3 {
		t.Fatalf("unexpected third result: %+v", results[2])
	}
}

func TestMapAppliesMapperInOrder(t *testing.T) {
	mapper := Func("inc", func(ctx context.Context, input any) (any, error) {
		return input.(int) + 1, nil
	})
	p := Map("inc-all", mapper)

	out, err := p.Execute(context.Background(), []any{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.([]any)
	want := []any{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected element %d to be %v, got %v", i, want[i], got[i])
		}
	}
}

func TestMapRejectsNonSliceInput(t *testing.T) {
	p := Map("inc-all", Mock("inc"))

	_, err := p.Execute(context.Background(), "not a slice")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
}

// Ensure WithLimit caps how many mapper invocations run at once.
func TestMapHonorsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int64

	mapper := Func("probe", func(ctx context.Context, input any) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return input, nil
	})

	items := make([]any, 8)
	for i := range items {
		items[i] = i
	}

	p := Map("bounded", mapper, WithLimit(2))
	if _, err := p.Execute(context.Background(), items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent mapper calls, observed %d", got)
	}
}

func TestMapAggregatesElementFailures(t *testing.T) {
	bad := errors.New("bad element")
	mapper := Func("pick", func(ctx context.Context, input any) (any, error) {
		if input.(int)%2 == 1 {
			return nil, bad
		}
		return input, nil
	})

	p := Map("mapper", mapper)
	_, err := p.Execute(context.Background(), []any{0, 1, 2, 3})

	var parErr *ParallelError
	if !errors.As(err, &parErr) {
		t.Fatalf("expected ParallelError, got %T (%v)", err, err)
	}
	if len(parErr.Branches) != 2 {
		t.Fatalf("expected 2 element failures, got %d", len(parErr.Branches))
	}
	if parErr.Branches[0].Index != 1 || parErr.Branches[0].Branch != "pick[1]" {
		t.Fatalf("unexpected first failure: %+v", parErr.Branches[0])
	}
	if parErr.Branches[1].Index != 3 {
		t.Fatalf("unexpected second failure: %+v", parErr.Branches[1])
	}
}

func TestParallelPanicsOnBadConstruction(t *testing.T) {
	assertPanics(t, "no branches", func() { Parallel("empty") })
	assertPanics(t, "nil branch", func() { FirstOf("holey", Mock("a"), nil) })
	assertPanics(t, "nil mapper", func() { Map("m", nil) })
}
