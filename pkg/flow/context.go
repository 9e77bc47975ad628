package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context carries per-invocation metadata through a primitive graph: the
// correlation id tying spans, metrics, and log lines together, the workflow
// being run, and a side-channel data map for values that are not part of the
// primary input/output payload.
//
// A Context is immutable once constructed. Every update method returns a new
// Context and leaves the receiver untouched, so parallel branches can read the
// same Context concurrently without locking.
type Context struct {
	correlationID string
	workflowID    string
	data          map[string]any
	startTime     time.Time
	endTime       time.Time
	err           *ErrorRecord
}

// ErrorRecord is the structured failure summary a Context can carry after a
// failed invocation.
type ErrorRecord struct {
	Kind      string
	Message   string
	Primitive string
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithCorrelationID sets an explicit correlation id; when absent one is
// generated.
func WithCorrelationID(id string) ContextOption {
	return func(c *Context) { c.correlationID = id }
}

// WithWorkflowID names the workflow definition this invocation belongs to.
func WithWorkflowID(id string) ContextOption {
	return func(c *Context) { c.workflowID = id }
}

// WithInitialData seeds the side-channel data map. The map is copied.
func WithInitialData(data map[string]any) ContextOption {
	return func(c *Context) {
		c.data = make(map[string]any, len(data))
		for k, v := range data {
			c.data[k] = v
		}
	}
}

// NewContext builds a Context for one end-to-end invocation. The correlation
// id is generated when not supplied and the start time is stamped here.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{startTime: time.Now()}
	for _, opt := range opts {
		opt(c)
	}
	if c.correlationID == "" {
		c.correlationID = uuid.NewString()
	}
	return c
}

// CorrelationID identifies this end-to-end invocation.
func (c *Context) CorrelationID() string { return c.correlationID }

// WorkflowID names the workflow definition being run, or "" when the graph
// was invoked directly.
func (c *Context) WorkflowID() string { return c.workflowID }

// StartTime is when the invocation began.
func (c *Context) StartTime() time.Time { return c.startTime }

// EndTime is when the invocation finished, or the zero time while it is still
// in flight.
func (c *Context) EndTime() time.Time { return c.endTime }

// Err returns the recorded failure summary, if any.
func (c *Context) Err() (ErrorRecord, bool) {
	if c.err == nil {
		return ErrorRecord{}, false
	}
	return *c.err, true
}

// Value looks up a side-channel data entry.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Data returns a copy of the side-channel data map.
func (c *Context) Data() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// With returns a copy of the Context with one data entry added or replaced.
func (c *Context) With(key string, value any) *Context {
	next := c.clone()
	if next.data == nil {
		next.data = make(map[string]any, 1)
	}
	next.data[key] = value
	return next
}

// WithError returns a copy of the Context carrying a failure summary.
func (c *Context) WithError(kind, message, primitive string) *Context {
	next := c.clone()
	next.err = &ErrorRecord{Kind: kind, Message: message, Primitive: primitive}
	return next
}

// Finish returns a copy of the Context with the end time stamped.
func (c *Context) Finish() *Context {
	next := c.clone()
	next.endTime = time.Now()
	return next
}

func (c *Context) clone() *Context {
	next := &Context{
		correlationID: c.correlationID,
		workflowID:    c.workflowID,
		startTime:     c.startTime,
		endTime:       c.endTime,
		err:           c.err,
	}
	if c.data != nil {
		next.data = make(map[string]any, len(c.data))
		for k, v := range c.data {
			next.data[k] = v
		}
	}
	return next
}

type contextKey int

const (
	flowContextKey contextKey = iota
	observerContextKey
	executionContextKey
)

// IntoContext attaches a flow Context to a context.Context so primitives down
// the call graph can read it.
func IntoContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, flowContextKey, c)
}

// FromContext extracts the flow Context attached by IntoContext.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(flowContextKey).(*Context)
	return c, ok
}

// EnsureContext returns ctx unchanged when it already carries a flow Context,
// and otherwise attaches a fresh one built from opts.
func EnsureContext(ctx context.Context, opts ...ContextOption) (context.Context, *Context) {
	if c, ok := FromContext(ctx); ok {
		return ctx, c
	}
	c := NewContext(opts...)
	return IntoContext(ctx, c), c
}

// WithObserver attaches an Observer so Invoke can report primitive lifecycle
// events. Engines set this once per run; it is a no-op without a matching
// Execution (see WithExecution).
func WithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerContextKey, obs)
}

// WithExecution attaches the Execution the current run belongs to.
func WithExecution(ctx context.Context, exec *Execution) context.Context {
	return context.WithValue(ctx, executionContextKey, exec)
}

func observerFrom(ctx context.Context) Observer {
	obs, _ := ctx.Value(observerContextKey).(Observer)
	return obs
}

func executionFrom(ctx context.Context) *Execution {
	exec, _ := ctx.Value(executionContextKey).(*Execution)
	return exec
}
