// Package observability wires logging, tracing and the prometheus registry
// used by every module.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds observability settings.
type Config struct {
	ServiceName     string
	Environment     string
	Version         string
	LogLevel        string
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSampleRate float64
}

// Provider owns the process-wide logger and tracer provider.
type Provider struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
}

// Registry holds the instruments handed to modules.
type Registry struct {
	Tracer     trace.Tracer
	Prometheus *prometheus.Registry
}

// Observability bundles the provider and the registry.
type Observability struct {
	Provider *Provider
	Registry *Registry
}

// Init builds the logger, the tracer provider and a fresh prometheus registry.
// Tracing is exported over OTLP/gRPC only when an endpoint is configured.
func Init(ctx context.Context, cfg Config) (*Observability, error) {
	logger := NewLogger(cfg.Environment, cfg.LogLevel).With(
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.Version),
	)

	var (
		tp       trace.TracerProvider = noop.NewTracerProvider()
		shutdown                      = func(context.Context) error { return nil }
	)

	if cfg.OTLPEndpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}

		rate := cfg.TraceSampleRate
		if rate <= 0 {
			rate = 0.1
		}

		sdkTP := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resource.NewSchemaless(
				attribute.String("service.name", cfg.ServiceName),
				attribute.String("service.version", cfg.Version),
				attribute.String("deployment.environment", cfg.Environment),
			)),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
		)
		tp = sdkTP
		shutdown = sdkTP.Shutdown
		logger.InfoContext(ctx, "Tracing enabled", slog.String("endpoint", cfg.OTLPEndpoint))
	}
	otel.SetTracerProvider(tp)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Observability{
		Provider: &Provider{
			Logger:         logger,
			TracerProvider: tp,
			shutdown:       shutdown,
		},
		Registry: &Registry{
			Tracer:     tp.Tracer(cfg.ServiceName),
			Prometheus: reg,
		},
	}, nil
}

// NewNoop returns an Observability that discards traces and logs to stderr.
// Intended for tests and tools.
func NewNoop() *Observability {
	tp := noop.NewTracerProvider()
	return &Observability{
		Provider: &Provider{
			Logger:         slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
			TracerProvider: tp,
			shutdown:       func(context.Context) error { return nil },
		},
		Registry: &Registry{
			Tracer:     tp.Tracer("noop"),
			Prometheus: prometheus.NewRegistry(),
		},
	}
}

// Shutdown flushes pending spans.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.Provider == nil || o.Provider.shutdown == nil {
		return nil
	}
	return o.Provider.shutdown(ctx)
}

// NewLogger returns a JSON logger, or a text logger in development.
func NewLogger(environment, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(environment, "development") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
