// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope continuous profiling. Each component is a no-op when disabled so
// callers never branch on configuration.
package telemetry

import (
	"context"
	"errors"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/infinity-9427/invoicing/internal/infrastructure/logger"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	defaultServiceName = "invoicing"
	serviceVersion     = "1.0.0"
)

func serviceName(cfg config.TelemetryConfig) string {
	if cfg.ServiceName == "" {
		return defaultServiceName
	}
	return cfg.ServiceName
}

// newResource describes this process to the collector
func newResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName(cfg)),
			semconv.ServiceVersion(serviceVersion),
		),
	)
}

// Telemetry bundles the providers started for one process
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler
	Metrics  *InvoiceMetrics
	logger   *zap.Logger
}

// Setup starts every enabled provider. A failure part way through shuts down
// what was already started.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*Telemetry, error) {
	log = logger.OrNop(log)
	t := &Telemetry{logger: log}

	var err error
	if t.Tracer, err = NewTracerProvider(ctx, cfg, log); err != nil {
		return nil, err
	}
	if cfg.SpanProfiles && cfg.ProfilingEnabled {
		t.Tracer.EnableSpanProfiles()
	}
	if t.Meter, err = NewMeterProvider(ctx, cfg, log); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if t.Logs, err = NewLoggerProvider(ctx, cfg, log); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if t.Profiler, err = NewProfiler(cfg, log); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if t.Metrics, err = NewInvoiceMetrics(t.Meter.Meter(meterName)); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	return t, nil
}

// Shutdown flushes and stops every provider, collecting all failures
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
