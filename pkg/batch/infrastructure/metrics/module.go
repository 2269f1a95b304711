package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	coreMetrics "github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// Module replaces the no-op recorder and tracer with the configured backends.
var Module = fx.Options(
	fx.Decorate(DecorateMetricRecorder),
	fx.Decorate(DecorateTracer),
)

// DecorateMetricRecorder selects the recorder named by metrics.recorder.
// Backends run behind an AsyncMetricRecorder that is drained on shutdown.
func DecorateMetricRecorder(lc fx.Lifecycle, cfg *config.Config, base coreMetrics.MetricRecorder) (coreMetrics.MetricRecorder, error) {
	mc := cfg.Digestor.Metrics
	var backend coreMetrics.MetricRecorder

	switch mc.Recorder {
	case "", "noop":
		return base, nil
	case "prometheus":
		backend = NewPrometheusRecorder(mc.TextfilePath)
	case "otel":
		provider, err := newMeterProvider(context.Background(), mc, cfg.Digestor.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
		rec, err := NewOTelRecorder(provider)
		if err != nil {
			return nil, err
		}
		backend = rec
	default:
		return nil, fmt.Errorf("unknown metrics recorder '%s'", mc.Recorder)
	}

	async := NewAsyncMetricRecorder(defaultQueueSize, backend)
	// Hooks run in reverse order on stop: the queue drains before the provider shuts down.
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		async.Close()
		return nil
	}})
	logger.Debugf("Metric recorder: %s", mc.Recorder)
	return async, nil
}

// DecorateTracer selects the span exporter named by tracing.exporter.
func DecorateTracer(lc fx.Lifecycle, cfg *config.Config, base coreMetrics.Tracer) (coreMetrics.Tracer, error) {
	tc := cfg.Digestor.Tracing
	ctx := context.Background()

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch tc.Exporter {
	case "", "none":
		return base, nil
	case "otlpgrpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(tc.Endpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case "otlphttp":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(tc.Endpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown tracing exporter '%s'", tc.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s span exporter: %w", tc.Exporter, err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource(tc.ServiceName)),
	)
	otel.SetTracerProvider(provider)
	lc.Append(fx.Hook{OnStop: provider.Shutdown})
	logger.Debugf("Tracing exporter: %s (%s)", tc.Exporter, tc.Endpoint)
	return NewOTelTracer(provider), nil
}

func newMeterProvider(ctx context.Context, mc config.MetricsConfig, serviceName string) (*sdkmetric.MeterProvider, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	switch mc.Protocol {
	case "", "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(mc.Endpoint)}
		if mc.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(mc.Endpoint)}
		if mc.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown metrics protocol '%s'", mc.Protocol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s metric exporter: %w", mc.Protocol, err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(serviceResource(serviceName)),
	), nil
}

func serviceResource(name string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", name))
}
