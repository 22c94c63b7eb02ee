// Package telemetry sets up OpenTelemetry for the service: a Prometheus
// scrape endpoint for metrics and optional OTLP/gRPC export for traces.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/pkg/logger"
)

const (
	dialTimeout        = 10 * time.Second
	defaultMetricsPath = "/metrics"
)

// Config is the telemetry section of the config file
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	// OTLP traces are only exported when Endpoint is set
	OTLP struct {
		Endpoint string `yaml:"endpoint"`
		Insecure bool   `yaml:"insecure"`
	} `yaml:"otlp"`
	// SampleRatio is the share of root traces kept, in (0,1]. Zero keeps all.
	SampleRatio float64 `yaml:"sample_ratio"`
	// MetricsPath is where the router serves the Prometheus scrape handler
	MetricsPath string `yaml:"metrics_path"`
}

func (c Config) sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

// Telemetry holds the SDK providers registered as otel globals
type Telemetry struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// New registers tracer and meter providers as otel globals. With telemetry
// disabled the globals stay no-op and every method of the result is too.
func New(cfg Config) (*Telemetry, error) {
	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return t, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = consts.ServiceName
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(consts.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	if t.tracerProvider, err = newTracerProvider(cfg, res); err != nil {
		return nil, err
	}
	if t.meterProvider, err = newMeterProvider(res); err != nil {
		_ = t.tracerProvider.Shutdown(context.Background())
		return nil, err
	}

	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)
	// Webhook deliveries and provider calls carry W3C trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry enabled",
		zap.String("service_name", cfg.ServiceName),
		zap.String("otlp_endpoint", cfg.OTLP.Endpoint),
		zap.Float64("sample_ratio", cfg.SampleRatio),
		zap.String("metrics_path", t.MetricsPath()),
	)
	return t, nil
}

func newTracerProvider(cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	}
	if cfg.OTLP.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLP.Endpoint)}
		if cfg.OTLP.Insecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	), nil
}

// IsEnabled reports whether telemetry is enabled
func (t *Telemetry) IsEnabled() bool {
	return t.config.Enabled
}

// MetricsPath returns the scrape path, /metrics unless configured
func (t *Telemetry) MetricsPath() string {
	if t.config.MetricsPath == "" {
		return defaultMetricsPath
	}
	return t.config.MetricsPath
}

// MetricsHandler returns the Prometheus scrape handler, or nil when disabled
func (t *Telemetry) MetricsHandler() http.Handler {
	if !t.config.Enabled {
		return nil
	}
	return promhttp.Handler()
}

// Shutdown flushes pending spans and stops both providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.Error("Telemetry shutdown incomplete", zap.Error(err))
	}
	return err
}
