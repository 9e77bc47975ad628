package loom

import (
	"context"
	"log/slog"

	"github.com/theinterneti/loom/internal/config"
	"github.com/theinterneti/loom/internal/engine"
	"github.com/theinterneti/loom/internal/logging"
	"github.com/theinterneti/loom/internal/queue"
	"github.com/theinterneti/loom/pkg/flow"
)

// Re-export key types so users don't need to dig into pkg/flow.

type (
	Primitive            = flow.Primitive
	Fn                   = flow.Fn
	Predicate            = flow.Predicate
	Selector             = flow.Selector
	KeyFunc              = flow.KeyFunc
	RetryPolicy          = flow.RetryPolicy
	BackoffStrategy      = flow.BackoffStrategy
	SagaStep             = flow.SagaStep
	BranchResult         = flow.BranchResult
	CachePrimitive       = flow.CachePrimitive
	CacheStats           = flow.CacheStats
	MockPrimitive        = flow.MockPrimitive
	Engine               = flow.Engine
	Workflow             = flow.Workflow
	Execution            = flow.Execution
	ExecutionListOptions = flow.ExecutionListOptions
	Status               = flow.Status
	Context              = flow.Context
	Observer             = flow.Observer
	LoggingObserver      = flow.LoggingObserver
	BasicMetrics         = flow.BasicMetrics
	MetricsSnapshot      = flow.MetricsSnapshot
	CompositeObserver    = flow.CompositeObserver
	NoopObserver         = flow.NoopObserver
	CostReport           = flow.CostReport
	CostReporter         = flow.CostReporter
)

// Re-export observer and option helpers.

var (
	NewLoggingObserver   = flow.NewLoggingObserver
	NewCompositeObserver = flow.NewCompositeObserver
	NewBasicMetrics      = flow.NewBasicMetrics

	NewContext        = flow.NewContext
	WithCorrelationID = flow.WithCorrelationID
	WithWorkflowID    = flow.WithWorkflowID

	Mock            = flow.Mock
	Returns         = flow.Returns
	ReturnsSequence = flow.ReturnsSequence
	Fails           = flow.Fails

	Instrument         = flow.Instrument
	InstrumentTree     = flow.InstrumentTree
	WithTracerProvider = flow.WithTracerProvider
	WithMeterProvider  = flow.WithMeterProvider

	WithDefaultRoute  = flow.WithDefaultRoute
	WithLimit         = flow.WithLimit
	WithRetryIf       = flow.WithRetryIf
	WithMaxIterations = flow.WithMaxIterations
	WithTTL           = flow.WithTTL
	WithMaxEntries    = flow.WithMaxEntries
	WithKeyFunc       = flow.WithKeyFunc

	ErrorKind   = flow.ErrorKind
	Fingerprint = flow.Fingerprint
)

// Re-export status values for convenience.

const (
	StatusRunning   = flow.StatusRunning
	StatusCompleted = flow.StatusCompleted
	StatusFailed    = flow.StatusFailed
)

// Re-export backoff strategies for convenience.

const (
	BackoffConstant    = flow.BackoffConstant
	BackoffLinear      = flow.BackoffLinear
	BackoffExponential = flow.BackoffExponential
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory state.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given
// Observer.
func NewInMemoryEngineWithObserver(obs Observer) Engine {
	return engine.New(engine.Config{Observer: obs})
}

// NewInMemoryQueue returns a bounded in-process task queue for custom worker
// setups; see pkg/worker. The LocalRunner builds one automatically.
// capacity <= 0 uses the default.
func NewInMemoryQueue(capacity int) queue.Queue {
	return queue.NewInMemoryQueue(capacity)
}

// Convenience helpers that just forward to the underlying Engine.

// Run runs the latest version of a registered workflow synchronously.
func Run(ctx context.Context, eng Engine, name string, input any) (*Execution, error) {
	return eng.Run(ctx, name, input)
}

// RunVersion runs a specific version of a registered workflow synchronously.
func RunVersion(ctx context.Context, eng Engine, name, version string, input any) (*Execution, error) {
	return eng.RunVersion(ctx, name, version, input)
}

// GetExecution fetches an execution snapshot by ID.
func GetExecution(ctx context.Context, eng Engine, id string) (*Execution, error) {
	return eng.Execution(ctx, id)
}

// ListExecutions lists executions according to the given options.
func ListExecutions(ctx context.Context, eng Engine, opts ExecutionListOptions) ([]*Execution, error) {
	return eng.ListExecutions(ctx, opts)
}

// Resume re-runs a previously failed execution from its recorded input.
func Resume(ctx context.Context, eng Engine, id string) (*Execution, error) {
	return eng.Resume(ctx, id)
}

// Invoke runs a primitive graph directly, without an engine. Panics in user
// code come back as errors; see flow.Invoke.
func Invoke(ctx context.Context, p Primitive, input any) (any, error) {
	return flow.Invoke(ctx, p, input)
}

// NewLogger builds the module's default logger from LOOM_* environment
// variables: colored debug output when LOOM_DEBUG is set, JSON otherwise,
// with an OTLP log exporter added when LOOM_OTLP_LOGS is set. The returned
// shutdown function flushes the exporter and must be called before exit.
func NewLogger(ctx context.Context) (*slog.Logger, func(context.Context) error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(ctx, logging.Options{
		Debug:          cfg.Debug,
		OTLP:           cfg.OTLPLogs,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
	})
	if err != nil {
		return nil, nil, err
	}
	return logger.Logger, logger.Shutdown, nil
}
