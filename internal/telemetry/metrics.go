package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/cesiumbuild"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildDuration     metric.Float64Histogram
	OversizedChunks   metric.Int64Counter
	AssetCopiesTotal  metric.Int64Counter
	AssetCopyErrors   metric.Int64Counter
	AssetCopyDuration metric.Float64Histogram

	// Dev server metrics
	DevRequestsTotal metric.Int64Counter
	DevRebuildsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for build and dev server spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"cesiumbuild.builds.total",
		metric.WithDescription("Total number of production builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"cesiumbuild.builds.errors.total",
		metric.WithDescription("Total number of production builds that failed"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"cesiumbuild.builds.duration",
		metric.WithDescription("Duration of production builds"),
		metric.WithUnit("ms"),
	)

	m.OversizedChunks, _ = meter.Int64Counter(
		"cesiumbuild.chunks.oversized.total",
		metric.WithDescription("Output files larger than the chunk size warning limit"),
		metric.WithUnit("{file}"),
	)

	m.AssetCopiesTotal, _ = meter.Int64Counter(
		"cesiumbuild.assets.copies.total",
		metric.WithDescription("Total number of static asset copy operations"),
		metric.WithUnit("{copy}"),
	)

	m.AssetCopyErrors, _ = meter.Int64Counter(
		"cesiumbuild.assets.copies.errors.total",
		metric.WithDescription("Total number of static asset copies that failed"),
		metric.WithUnit("{error}"),
	)

	m.AssetCopyDuration, _ = meter.Float64Histogram(
		"cesiumbuild.assets.copies.duration",
		metric.WithDescription("Duration of a single static asset copy"),
		metric.WithUnit("ms"),
	)

	m.DevRequestsTotal, _ = meter.Int64Counter(
		"cesiumbuild.dev.requests.total",
		metric.WithDescription("Total number of requests handled by the dev server"),
		metric.WithUnit("{request}"),
	)

	m.DevRebuildsTotal, _ = meter.Int64Counter(
		"cesiumbuild.dev.rebuilds.total",
		metric.WithDescription("Total number of watch mode rebuilds"),
		metric.WithUnit("{build}"),
	)

	return m
}
