package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "github.com/motorvalue/vehicle-valuation"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount        metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	ValuationCount      metric.Int64Counter
	ValuationDuration   metric.Float64Histogram
	CacheHitCount       metric.Int64Counter
	CacheMissCount      metric.Int64Counter
	SourceFetchCount    metric.Int64Counter
	SourceFetchDuration metric.Float64Histogram
}

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		return tracerProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	valuationCount, err := meter.Int64Counter(
		"valuation.request.count",
		metric.WithDescription("Number of valuation requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	valuationDuration, err := meter.Float64Histogram(
		"valuation.request.duration",
		metric.WithDescription("End-to-end valuation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits by tier"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses by tier"),
	)
	if err != nil {
		return nil, err
	}

	sourceFetchCount, err := meter.Int64Counter(
		"source.fetch.count",
		metric.WithDescription("Number of listing source fetches"),
	)
	if err != nil {
		return nil, err
	}

	sourceFetchDuration, err := meter.Float64Histogram(
		"source.fetch.duration",
		metric.WithDescription("Listing source fetch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:        requestCount,
		RequestDuration:     requestDuration,
		ValuationCount:      valuationCount,
		ValuationDuration:   valuationDuration,
		CacheHitCount:       cacheHitCount,
		CacheMissCount:      cacheMissCount,
		SourceFetchCount:    sourceFetchCount,
		SourceFetchDuration: sourceFetchDuration,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(meterName)
	return tracer.Start(ctx, spanName)
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request metric
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}

	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordValuation records the outcome and duration of one valuation request
func RecordValuation(ctx context.Context, metrics *Metrics, outcome, strategy string, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("valuation.outcome", outcome),
		attribute.String("valuation.strategy", strategy),
	}
	metrics.ValuationCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.ValuationDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit for the given tier
func RecordCacheHit(ctx context.Context, metrics *Metrics, tier string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tier", tier)))
}

// RecordCacheMiss records a cache miss for the given tier
func RecordCacheMiss(ctx context.Context, metrics *Metrics, tier string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tier", tier)))
}

// RecordSourceFetch records one listing source fetch
func RecordSourceFetch(ctx context.Context, metrics *Metrics, source string, count int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("source.name", source),
		attribute.Int("source.listing_count", count),
	}
	metrics.SourceFetchCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.SourceFetchDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
