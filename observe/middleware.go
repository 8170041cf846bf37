package observe

import (
	"context"
	"time"
)

// CallFunc performs one HTTP exchange against an endpoint and reports the
// response status. A transport failure is reported as a non-nil error with
// status 0; error statuses are not errors at this level.
type CallFunc func(ctx context.Context, endpoint EndpointMeta) (status int, err error)

// Middleware wraps API calls with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap returns a thread-safe CallFunc.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its components. Nil components are
// replaced with no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// RecordRefresh forwards a refresh outcome to the metrics backend.
func (m *Middleware) RecordRefresh(ctx context.Context, outcome string) {
	m.metrics.RecordRefresh(ctx, outcome)
}

// Wrap instruments fn.
func (m *Middleware) Wrap(fn CallFunc) CallFunc {
	return func(ctx context.Context, endpoint EndpointMeta) (int, error) {
		ctx, span := m.tracer.StartSpan(ctx, endpoint)
		start := time.Now()

		status, err := fn(ctx, endpoint)

		duration := time.Since(start)
		m.tracer.EndSpan(span, status, err)
		m.metrics.RecordCall(ctx, endpoint, status, duration, err)

		log := m.logger.WithEndpoint(endpoint)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		switch {
		case err != nil:
			fields = append(fields, Err(err))
			log.Error(ctx, "api call failed", fields...)
		case status >= 500:
			fields = append(fields, Field{Key: "status", Value: status})
			log.Warn(ctx, "api call returned server error", fields...)
		default:
			fields = append(fields, Field{Key: "status", Value: status})
			log.Debug(ctx, "api call completed", fields...)
		}

		return status, err
	}
}
