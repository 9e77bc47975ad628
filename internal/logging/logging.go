// Package logging builds the module's slog logger: a colored human-readable
// handler for debug runs, JSON for everything else, with an optional OTLP
// bridge so log records flow into the same OpenTelemetry pipeline as spans
// and metrics.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/theinterneti/loom/internal/telemetry"
)

// Options configures New.
type Options struct {
	// Debug selects the colored single-line handler at debug level instead
	// of JSON at info level.
	Debug bool
	// OTLP adds an OTLP log exporter next to the stdout handler. Ignored
	// in debug mode.
	OTLP bool
	// ServiceName and ServiceVersion label exported records.
	ServiceName    string
	ServiceVersion string
	// Writer receives the stdout handler's output. Nil means os.Stdout.
	Writer io.Writer
}

// Logger is a slog.Logger plus the exporter lifecycle behind it.
type Logger struct {
	*slog.Logger
	provider *sdklog.LoggerProvider
}

// New builds a Logger per opts. The OTLP exporter reads the standard
// OTEL_EXPORTER_OTLP_* environment variables for its endpoint.
func New(ctx context.Context, opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	if opts.Debug {
		return &Logger{Logger: slog.New(NewDebugHandler(writer))}, nil
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	var provider *sdklog.LoggerProvider
	if opts.OTLP {
		res, err := resource.Merge(
			resource.Default(),
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName(opts.ServiceName),
				semconv.ServiceVersion(opts.ServiceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("build resource: %w", err)
		}
		exporter, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create log exporter: %w", err)
		}
		provider = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
			sdklog.WithResource(res),
		)
		handlers = append(handlers, otelslog.NewHandler(
			telemetry.ScopeName,
			otelslog.WithLoggerProvider(provider),
		))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = NewMultiHandler(handlers...)
	}
	return &Logger{Logger: slog.New(handler), provider: provider}, nil
}

// Shutdown flushes and stops the OTLP exporter, if one was configured.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l.provider == nil {
		return nil
	}
	return l.provider.Shutdown(ctx)
}
