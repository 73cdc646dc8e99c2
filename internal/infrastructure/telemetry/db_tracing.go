package telemetry

import (
	"time"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dbSystem             = "postgresql"
	defaultSlowThreshold = 200 * time.Millisecond
	startTimeKey         = "telemetry:start_time"
)

// RegisterDBTracing installs the otelgorm plugin plus a slow query marker.
// Query variables are only attached to spans when DBLogFullSQL is set.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(dbSystem)}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.DBSlowQueryThresh
	if threshold <= 0 {
		threshold = defaultSlowThreshold
	}
	return registerSlowQueryCallbacks(db, threshold, logger)
}

func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration, logger *zap.Logger) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startTimeKey, time.Now())
	}
	after := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		if elapsed < threshold {
			return
		}
		span := trace.SpanFromContext(tx.Statement.Context)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
		logger.Warn("Slow query",
			zap.String("table", tx.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("telemetry:before_create", before); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("telemetry:before_query", before); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("telemetry:before_update", before); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("telemetry:slow_create", after); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("telemetry:slow_query", after); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("telemetry:slow_update", after); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("telemetry:slow_delete", after); err != nil {
		return err
	}
	return nil
}
