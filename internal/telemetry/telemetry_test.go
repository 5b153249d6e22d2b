package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetProviders(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
}

func shutdownCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestInitTelemetry_sdkDisabled(t *testing.T) {
	resetProviders(t)
	t.Setenv("OTEL_SDK_DISABLED", "true")

	before := otel.GetTracerProvider()

	shutdown, err := InitTelemetry(context.Background(), "cesiumbuild", "test")
	require.NoError(t, err)
	require.Equal(t, before, otel.GetTracerProvider())
	require.NoError(t, shutdown(shutdownCtx(t)))
}

func TestInitTelemetry_exportersNone(t *testing.T) {
	resetProviders(t)
	t.Setenv("OTEL_TRACES_EXPORTER", "none")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")

	before := otel.GetTracerProvider()

	shutdown, err := InitTelemetry(context.Background(), "cesiumbuild", "test")
	require.NoError(t, err)
	require.Equal(t, before, otel.GetTracerProvider())
	require.NoError(t, shutdown(shutdownCtx(t)))
}

func TestInitTelemetry_noCollector(t *testing.T) {
	resetProviders(t)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:1")
	t.Setenv("OTEL_METRICS_EXPORTER", "none")

	shutdown, err := InitTelemetry(context.Background(), "cesiumbuild", "test")
	require.NoError(t, err)
	require.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())

	// nothing was recorded, so shutdown has nothing to send
	require.NoError(t, shutdown(shutdownCtx(t)))
}

func TestInitTelemetry_unsupportedExporter(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "zipkin")

	_, err := InitTelemetry(context.Background(), "cesiumbuild", "test")
	require.EqualError(t, err, `unsupported OTEL_TRACES_EXPORTER "zipkin"`)
}

func TestExporterFromEnv(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	name, err := exporterFromEnv("OTEL_TRACES_EXPORTER")
	require.NoError(t, err)
	require.Equal(t, ExporterOTLP, name)

	t.Setenv("OTEL_TRACES_EXPORTER", " None ")
	name, err = exporterFromEnv("OTEL_TRACES_EXPORTER")
	require.NoError(t, err)
	require.Equal(t, ExporterNone, name)
}
