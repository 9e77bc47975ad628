package loom

import (
	"time"

	"github.com/theinterneti/loom/pkg/flow"
)

// RetryBuilder provides a fluent way to construct RetryPolicy values and
// retry-wrapped primitives.
type RetryBuilder struct {
	policy RetryPolicy
	opts   []flow.RetryOption
}

// Retry creates a RetryBuilder allowing maxRetries re-attempts after the
// first failure, so the wrapped work runs at most maxRetries+1 times.
//
// maxRetries <= 0 is treated as 0 (a single attempt).
func Retry(maxRetries int) RetryBuilder {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return RetryBuilder{
		policy: RetryPolicy{MaxRetries: maxRetries},
	}
}

// WithConstantBackoff sleeps the same delay between every attempt.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	p := r.policy
	p.Strategy = flow.BackoffConstant
	p.BaseDelay = delay
	p.MaxDelay = 0
	return RetryBuilder{policy: p, opts: r.opts}
}

// WithLinearBackoff grows the delay by base each attempt, capped at max.
// max <= 0 means no cap.
func (r RetryBuilder) WithLinearBackoff(base, max time.Duration) RetryBuilder {
	p := r.policy
	p.Strategy = flow.BackoffLinear
	p.BaseDelay = base
	p.MaxDelay = max
	return RetryBuilder{policy: p, opts: r.opts}
}

// WithExponentialBackoff doubles the delay each attempt, starting at base
// and capped at max. max <= 0 means no cap.
//
// Example:
//
//	Retry(3).WithExponentialBackoff(100*time.Millisecond, 2*time.Second)
func (r RetryBuilder) WithExponentialBackoff(base, max time.Duration) RetryBuilder {
	p := r.policy
	p.Strategy = flow.BackoffExponential
	p.BaseDelay = base
	p.MaxDelay = max
	return RetryBuilder{policy: p, opts: r.opts}
}

// WithJitter adds up to fraction*delay of random extra sleep to each
// backoff, spreading out retries from concurrent callers.
func (r RetryBuilder) WithJitter(fraction float64) RetryBuilder {
	p := r.policy
	p.Jitter = fraction
	return RetryBuilder{policy: p, opts: r.opts}
}

// Immediate disables any sleep between attempts.
// Retries still respect the attempt budget.
func (r RetryBuilder) Immediate() RetryBuilder {
	p := r.policy
	p.Strategy = ""
	p.BaseDelay = 0
	p.MaxDelay = 0
	p.Jitter = 0
	return RetryBuilder{policy: p, opts: r.opts}
}

// OnlyIf restricts retries to failures the predicate accepts; others
// propagate unchanged after the current attempt.
func (r RetryBuilder) OnlyIf(retryable func(error) bool) RetryBuilder {
	return RetryBuilder{
		policy: r.policy,
		opts:   append(append([]flow.RetryOption(nil), r.opts...), flow.WithRetryIf(retryable)),
	}
}

// Policy returns the underlying RetryPolicy, for use with
// FlowBuilder.StepWithRetry or flow.Retry directly.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}

// Wrap builds the retry primitive around p.
func (r RetryBuilder) Wrap(name string, p Primitive) Primitive {
	return flow.Retry(name, p, r.policy, r.opts...)
}
