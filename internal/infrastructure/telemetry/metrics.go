package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const (
	meterName              = "invoicing"
	defaultMetricsInterval = 60 * time.Second
)

// MeterProvider owns the SDK meter provider
type MeterProvider struct {
	sdk     *sdkmetric.MeterProvider
	global  metric.MeterProvider
	enabled bool
}

// NewMeterProvider pushes metrics over OTLP/gRPC on a fixed interval when
// both telemetry and metrics are enabled
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*MeterProvider, error) {
	if !cfg.Enabled || !cfg.MetricsEnabled {
		mp := &MeterProvider{global: noop.NewMeterProvider()}
		otel.SetMeterProvider(mp.global)
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = defaultMetricsInterval
	}

	mp, err := newMeterProviderWithReader(cfg, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp.global)
	logger.Info("Metrics enabled", zap.Duration("interval", interval))
	return mp, nil
}

// NewMeterProviderWithReader builds an enabled provider around an explicit
// reader. It does not touch the global provider.
func NewMeterProviderWithReader(reader sdkmetric.Reader) *MeterProvider {
	sdk := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &MeterProvider{sdk: sdk, global: sdk, enabled: true}
}

func newMeterProviderWithReader(cfg config.TelemetryConfig, reader sdkmetric.Reader) (*MeterProvider, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}
	sdk := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	return &MeterProvider{sdk: sdk, global: sdk, enabled: true}, nil
}

// Meter returns a named meter
func (mp *MeterProvider) Meter(name string) metric.Meter {
	return mp.global.Meter(name)
}

// IsEnabled reports whether metrics are exported
func (mp *MeterProvider) IsEnabled() bool {
	return mp.enabled
}

// Shutdown flushes pending measurements
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.sdk.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
