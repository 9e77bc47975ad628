package flow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy string

const (
	// BackoffConstant sleeps BaseDelay between every attempt.
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear sleeps BaseDelay multiplied by the attempt number.
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential doubles the delay after every attempt.
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy describes how a Retry primitive reattempts a failed call.
// The zero value retries never and sleeps never.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first failure, so
	// the wrapped primitive runs at most MaxRetries+1 times.
	MaxRetries int
	// Strategy picks the backoff curve. Empty means constant.
	Strategy BackoffStrategy
	// BaseDelay is the first delay. Zero disables sleeping entirely.
	BaseDelay time.Duration
	// MaxDelay caps the delay when set.
	MaxDelay time.Duration
	// Jitter adds up to Jitter*delay of random extra sleep when positive,
	// spreading out retries from concurrent callers.
	Jitter float64
}

// Delay computes the sleep before the next attempt, where attempt is the
// number of failures so far (1 after the first failure).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 || attempt <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Strategy {
	case BackoffLinear:
		d = p.BaseDelay * time.Duration(attempt)
	case BackoffExponential:
		d = p.BaseDelay
		for i := 1; i < attempt; i++ {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				d = p.MaxDelay
				break
			}
		}
	default:
		d = p.BaseDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(p.Jitter * rand.Float64() * float64(d))
	}
	return d
}

// RetryOption configures a Retry primitive.
type RetryOption func(*retryPrimitive)

// WithRetryIf restricts which failures are retried. A failure the predicate
// rejects is returned unchanged after the current attempt. By default every
// failure is retried.
func WithRetryIf(retryable func(error) bool) RetryOption {
	return func(p *retryPrimitive) { p.retryable = retryable }
}

type retryPrimitive struct {
	name      string
	wrapped   Primitive
	policy    RetryPolicy
	retryable func(error) bool
}

// Retry reattempts the wrapped primitive per policy. When the attempts run
// out the last failure is wrapped in a RetryExhaustedError; a failure the
// WithRetryIf predicate rejects propagates unchanged instead.
func Retry(name string, p Primitive, policy RetryPolicy, opts ...RetryOption) Primitive {
	if name == "" {
		panic("loom: retry name must not be empty")
	}
	if p == nil {
		panic(fmt.Sprintf("loom: retry %q wraps a nil primitive", name))
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	r := &retryPrimitive{name: name, wrapped: p, policy: policy}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retryPrimitive) Name() string { return r.name }
func (r *retryPrimitive) Kind() string { return KindRetry }

func (r *retryPrimitive) Execute(ctx context.Context, input any) (any, error) {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := Invoke(ctx, r.wrapped, input)
		attempts++
		if err == nil {
			return out, nil
		}
		if r.retryable != nil && !r.retryable(err) {
			return nil, err
		}
		if attempts > r.policy.MaxRetries {
			return nil, &RetryExhaustedError{Primitive: r.name, Attempts: attempts, Cause: err}
		}
		if delay := r.policy.Delay(attempts); delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}
