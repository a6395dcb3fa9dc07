package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/theblitlabs/conductor-worker/internal/core/config"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

const instrumentationName = "github.com/theblitlabs/conductor-worker"

// ShutdownFunc flushes and stops the telemetry providers
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Tracer returns the tracer used around task execution. It is a no-op until
// InitTelemetry installs a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Meter returns the meter used for OTLP-exported worker metrics.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// InitTelemetry initializes OpenTelemetry with the OTLP exporters. A collector
// that cannot be reached is logged and the worker continues without telemetry.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	log := logger.WithComponent("telemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collectorAddr := fmt.Sprintf("%s:%d", cfg.OTELCollector.Host, cfg.OTELCollector.Port)
	conn, err := grpc.DialContext(dialCtx, collectorAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Warn().Err(err).Str("collector", collectorAddr).
			Msg("Failed to connect to OpenTelemetry collector, continuing without telemetry")
		return noopShutdown, nil
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create trace exporter, continuing without telemetry")
		conn.Close()
		return noopShutdown, nil
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create metric exporter, continuing with traces only")
		return func(ctx context.Context) error {
			return errors.Join(tracerProvider.Shutdown(ctx), conn.Close())
		}, nil
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			metricExporter,
			sdkmetric.WithInterval(cfg.MetricsInterval),
		)),
	)
	otel.SetMeterProvider(meterProvider)

	log.Info().Str("collector", collectorAddr).Str("service", cfg.ServiceName).Msg("Telemetry initialized")

	return func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var errs []error
		if err := tracerProvider.Shutdown(cctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
		if err := meterProvider.Shutdown(cctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close gRPC connection: %w", err))
		}
		return errors.Join(errs...)
	}, nil
}
