package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Exporter names accepted in OTEL_TRACES_EXPORTER and OTEL_METRICS_EXPORTER.
const (
	ExporterOTLP = "otlp"
	ExporterNone = "none"
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

// InitTelemetry installs OTLP gRPC providers for the lifetime of one command.
//
// OTEL_SDK_DISABLED=true skips the SDK entirely. OTEL_TRACES_EXPORTER and
// OTEL_METRICS_EXPORTER select "otlp" (default) or "none" per signal, and the
// exporters read their endpoint from the OTEL_EXPORTER_OTLP_* variables.
// Metrics are exported once, when the returned function shuts the reader down.
func InitTelemetry(ctx context.Context, serviceName, version string) (ShutdownFunc, error) {
	if disabled, _ := strconv.ParseBool(os.Getenv("OTEL_SDK_DISABLED")); disabled {
		log.Debug().Msg("OpenTelemetry SDK disabled")
		return noopShutdown, nil
	}

	tracesExporter, err := exporterFromEnv("OTEL_TRACES_EXPORTER")
	if err != nil {
		return nil, err
	}
	metricsExporter, err := exporterFromEnv("OTEL_METRICS_EXPORTER")
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdowns []ShutdownFunc

	if tracesExporter == ExporterOTLP {
		exporter, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if metricsExporter == ExporterOTLP {
		exporter, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("failed to create metric exporter: %w", err),
				shutdownAll(ctx, shutdowns),
			)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	log.Debug().
		Str("service", serviceName).
		Str("traces", tracesExporter).
		Str("metrics", metricsExporter).
		Msg("OpenTelemetry initialized")

	return func(ctx context.Context) error {
		return shutdownAll(ctx, shutdowns)
	}, nil
}

func exporterFromEnv(key string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if name == "" {
		return ExporterOTLP, nil
	}
	if !slices.Contains([]string{ExporterOTLP, ExporterNone}, name) {
		return "", fmt.Errorf("unsupported %s %q", key, name)
	}
	return name, nil
}

// shutdownAll stops providers in reverse order of installation.
func shutdownAll(ctx context.Context, shutdowns []ShutdownFunc) error {
	var errs []error
	for _, shutdown := range slices.Backward(shutdowns) {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func noopShutdown(context.Context) error { return nil }
