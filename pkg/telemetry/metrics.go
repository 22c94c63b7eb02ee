package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/pkg/logger"
)

// MeterName is the instrumentation scope for application metrics
const MeterName = "github.com/verustcode/codesync"

// Metrics holds all application instruments. A zero Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	WebhooksTotal metric.Int64Counter

	SyncsTotal    metric.Int64Counter
	SyncDuration  metric.Float64Histogram
	QueuedSyncs   metric.Int64UpDownCounter
	ProviderCalls metric.Float64Histogram

	ReportsTotal metric.Int64Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide metrics, creating instruments on
// first use against the global meter provider.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		m, err := newMetrics(otel.Meter(MeterName))
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			m = &Metrics{}
		}
		globalMetrics = m
	})
	return globalMetrics
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "codesync_http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.WebhooksTotal, "codesync_webhooks_total", "Webhook deliveries by provider and outcome", "{delivery}"},
		{&m.SyncsTotal, "codesync_syncs_total", "Sync operations by provider and outcome", "{sync}"},
		{&m.ReportsTotal, "codesync_reports_total", "Reports generated by status", "{report}"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit)); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.HTTPRequestDuration, "codesync_http_request_duration_seconds", "Duration of HTTP requests", []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}},
		{&m.SyncDuration, "codesync_sync_duration_seconds", "Duration of sync operations including report generation", []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60}},
		{&m.ProviderCalls, "codesync_provider_call_duration_seconds", "Duration of outbound provider API calls", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		); err != nil {
			return nil, err
		}
	}

	m.QueuedSyncs, err = meter.Int64UpDownCounter("codesync_queued_syncs",
		metric.WithDescription("Sync tasks waiting or running"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, seconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
			attribute.Int("status_code", status),
		))
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, seconds, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("route", route),
		))
	}
}

// RecordWebhook records a webhook delivery outcome (accepted, rejected, ignored, error)
func (m *Metrics) RecordWebhook(ctx context.Context, provider, outcome string) {
	if m.WebhooksTotal == nil {
		return
	}
	m.WebhooksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// RecordSyncQueued adjusts the number of pending sync tasks by delta.
func (m *Metrics) RecordSyncQueued(ctx context.Context, delta int64) {
	if m.QueuedSyncs != nil {
		m.QueuedSyncs.Add(ctx, delta)
	}
}

// RecordSync records a finished sync operation
func (m *Metrics) RecordSync(ctx context.Context, provider string, success bool, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", success),
	)
	if m.SyncsTotal != nil {
		m.SyncsTotal.Add(ctx, 1, attrs)
	}
	if m.SyncDuration != nil {
		m.SyncDuration.Record(ctx, seconds, attrs)
	}
}

// RecordProviderCall records the latency of one outbound provider request
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, operation string, success bool, seconds float64) {
	if m.ProviderCalls == nil {
		return
	}
	m.ProviderCalls.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
}

// RecordReport records a generated report by terminal status
func (m *Metrics) RecordReport(ctx context.Context, status string) {
	if m.ReportsTotal == nil {
		return
	}
	m.ReportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
