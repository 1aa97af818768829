// Package telemetry instruments tix engine operations with OpenTelemetry.
//
// Nothing is exported unless TIX_OTEL_ENABLED=true. Then:
//
//	TIX_OTEL_STDOUT=true                 spans and metrics printed to stdout
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT  OTLP/HTTP metrics (host:port or URL)
//	OTEL_EXPORTER_OTLP_ENDPOINT          fallback for the above
//
// Spans are only ever written to stdout.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	stdoutInterval = 15 * time.Second
	otlpInterval   = 30 * time.Second
)

// exportConfig is the environment's view of where telemetry goes.
type exportConfig struct {
	enabled bool
	stdout  bool
	otlp    string
}

func configFromEnv() exportConfig {
	otlp := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if otlp == "" {
		otlp = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return exportConfig{
		enabled: os.Getenv("TIX_OTEL_ENABLED") == "true",
		stdout:  os.Getenv("TIX_OTEL_STDOUT") == "true",
		otlp:    otlp,
	}
}

var (
	shutdownMu  sync.Mutex
	shutdownFns []func(context.Context) error
)

// Enabled reports whether TIX_OTEL_ENABLED=true.
func Enabled() bool { return configFromEnv().enabled }

// Init installs the global tracer and meter providers for service. With
// telemetry disabled the providers are no-ops.
func Init(ctx context.Context, service, version string) error {
	cfg := configFromEnv()
	if !cfg.enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(service),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := newTracerProvider(cfg, res)
	if err != nil {
		return fmt.Errorf("telemetry: tracer provider: %w", err)
	}
	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	shutdownMu.Lock()
	shutdownFns = append(shutdownFns, tp.Shutdown, mp.Shutdown)
	shutdownMu.Unlock()
	return nil
}

func newTracerProvider(cfg exportConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg exportConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.stdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(stdoutInterval))))
	}
	if cfg.otlp != "" {
		exp, err := newOTLPMetricExporter(ctx, cfg.otlp)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics %s: %w", cfg.otlp, err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(otlpInterval))))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns the global tracer for scope.
func Tracer(scope string) trace.Tracer { return otel.Tracer(scope) }

// Meter returns the global meter for scope.
func Meter(scope string) metric.Meter { return otel.Meter(scope) }

// Shutdown flushes and stops every provider Init installed.
func Shutdown(ctx context.Context) error {
	shutdownMu.Lock()
	fns := shutdownFns
	shutdownFns = nil
	shutdownMu.Unlock()

	var errs []error
	for _, fn := range fns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
