package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError reports input that a primitive could not accept.
type ValidationError struct {
	Primitive string
	Reason    string
	Cause     error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Primitive, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Primitive, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// ExecutionError reports a failure inside a primitive's own logic, including
// recovered panics. Stack is populated only for panics.
type ExecutionError struct {
	Primitive string
	Cause     error
	Stack     []byte
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: execution failed: %v", e.Primitive, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// TimeoutError reports that a Timeout primitive hit its limit before the
// wrapped primitive returned.
type TimeoutError struct {
	Primitive string
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Primitive, e.Limit)
}

// Is lets errors.Is treat a TimeoutError as a deadline, matching what callers
// already check for plain context timeouts.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// RetryExhaustedError reports that every retry attempt failed. Cause is the
// failure of the final attempt.
type RetryExhaustedError struct {
	Primitive string
	Attempts  int
	Cause     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Primitive, e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// FallbackExhaustedError reports that the primary and every fallback failed.
// Failures holds one error per attempt, in attempt order.
type FallbackExhaustedError struct {
	Primitive string
	Failures  []error
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d candidates failed: %s", e.Primitive, len(e.Failures), joinErrors(e.Failures))
}

func (e *FallbackExhaustedError) Unwrap() []error { return e.Failures }

// CompensationError reports a saga rollback. Cause is the forward failure
// that triggered compensation; Failures holds any errors the compensators
// themselves produced, which never stop the rollback.
type CompensationError struct {
	Primitive string
	Cause     error
	Failures  []error
}

func (e *CompensationError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: rolled back after failure: %v", e.Primitive, e.Cause)
	}
	return fmt.Sprintf("%s: rolled back after failure: %v (%d compensation errors: %s)",
		e.Primitive, e.Cause, len(e.Failures), joinErrors(e.Failures))
}

func (e *CompensationError) Unwrap() error { return e.Cause }

// RouteNotFoundError reports a Router selector result with no matching route
// and no default.
type RouteNotFoundError struct {
	Primitive string
	Key       string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("%s: no route for key %q", e.Primitive, e.Key)
}

// BranchError ties one failed parallel branch to its position and name.
type BranchError struct {
	Branch string
	Index  int
	Err    error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %d (%s): %v", e.Index, e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// ParallelError aggregates every failed branch of a parallel execution.
// Branches is ordered by branch index.
type ParallelError struct {
	Primitive string
	Branches  []*BranchError
}

func (e *ParallelError) Error() string {
	parts := make([]string, len(e.Branches))
	for i, b := range e.Branches {
		parts[i] = b.Error()
	}
	return fmt.Sprintf("%s: %d branches failed: %s", e.Primitive, len(e.Branches), strings.Join(parts, "; "))
}

func (e *ParallelError) Unwrap() []error {
	errs := make([]error, len(e.Branches))
	for i, b := range e.Branches {
		errs[i] = b
	}
	return errs
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// ErrorKind classifies err into the label used on metrics and span attributes.
// Wrapper kinds win over the kinds they wrap, so a RetryExhaustedError around
// a TimeoutError classifies as retry_exhausted.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		retryErr    *RetryExhaustedError
		fallbackErr *FallbackExhaustedError
		sagaErr     *CompensationError
		parErr      *ParallelError
		timeoutErr  *TimeoutError
		routeErr    *RouteNotFoundError
		validErr    *ValidationError
		execErr     *ExecutionError
	)
	switch {
	case errors.As(err, &retryErr):
		return "retry_exhausted"
	case errors.As(err, &fallbackErr):
		return "fallback_exhausted"
	case errors.As(err, &sagaErr):
		return "compensation"
	case errors.As(err, &parErr):
		return "parallel"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &routeErr):
		return "route_not_found"
	case errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &execErr):
		return "execution"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "execution"
	}
}
