// Package telemetry ships traces, metrics and zap records to an OTLP
// collector over gRPC and owns the WMS instrument set.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casa/wms/internal/infrastructure/config"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported resource
const ServiceVersion = "1.0.0"

// shutdownTimeout bounds the final flush of each provider
const shutdownTimeout = 10 * time.Second

// ErrMeterNil is returned when an instrument set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// flusher is the part of the sdk providers this package drives
type flusher interface {
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// shutdownSignal flushes and stops one sdk provider under shutdownTimeout
func shutdownSignal(ctx context.Context, signal string, p flusher, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := p.Shutdown(ctx); err != nil {
		logger.Error("telemetry shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	logger.Info("telemetry signal stopped", zap.String("signal", signal))
	return nil
}

func flushSignal(ctx context.Context, signal string, p flusher) error {
	if err := p.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", signal, err)
	}
	return nil
}

// Providers bundles the trace, metric and log providers
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup builds all providers from application settings. Disabled telemetry
// yields no-op providers, so callers never need nil checks.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	tracer, err := NewTracerProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	meter, err := NewMeterProvider(ctx, cfg, logger)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}
	logs, err := NewLoggerProvider(ctx, cfg, logger)
	if err != nil {
		_ = meter.Shutdown(ctx)
		_ = tracer.Shutdown(ctx)
		return nil, err
	}
	return &Providers{Tracer: tracer, Meter: meter, Logs: logs}, nil
}

// Shutdown stops logs first so records emitted while tearing down the
// other signals still leave the process
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Logs.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
	)
}
