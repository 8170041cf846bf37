package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Refresh outcomes recorded by RecordRefresh.
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshSkipped   = "no_refresh_token"
	RefreshShared    = "shared"
)

// Metrics records API call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one HTTP exchange with its status and duration.
	RecordCall(ctx context.Context, meta EndpointMeta, status int, duration time.Duration, err error)

	// RecordRefresh records the outcome of a 401-triggered token refresh.
	RecordRefresh(ctx context.Context, outcome string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	refreshCount metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"api.call.total",
		metric.WithDescription("Total number of backend API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"api.call.errors",
		metric.WithDescription("Backend API calls that failed or returned an error status"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	refreshCount, err := meter.Int64Counter(
		"api.token.refresh",
		metric.WithDescription("Access token refresh attempts by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"api.call.duration_ms",
		metric.WithDescription("Backend API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		refreshCount: refreshCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta EndpointMeta, status int, duration time.Duration, err error) {
	attrs := meta.attributes()
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil || status >= 400 {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordRefresh(ctx context.Context, outcome string) {
	m.refreshCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, EndpointMeta, int, time.Duration, error) {}
func (noopMetrics) RecordRefresh(context.Context, string)                               {}
