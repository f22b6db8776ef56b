package callapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the call lifecycle:
// dispatches, retries, deduplication, validation and hook failures. It is
// safe for concurrent use, and a nil collector is a no-op.
type MetricsCollector struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	callsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	dedupeJoinsTotal   *prometheus.CounterVec
	dedupeCancelsTotal *prometheus.CounterVec

	validationFailures *prometheus.CounterVec
	hookFailures       *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer. Labels use the route key rather than the final URL to keep
// cardinality bounded.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		callsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_calls_total",
				Help: "Total number of calls resolved",
			},
			[]string{"method", "route", "status_code"},
		),
		callDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "callapi_call_duration_seconds",
				Help:    "Duration of calls in seconds, including retries and backoff",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		callsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "callapi_calls_in_flight",
				Help: "Number of calls currently in flight",
			},
			[]string{"method", "route"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "route", "attempt"},
		),
		dedupeJoinsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_dedupe_joins_total",
				Help: "Total number of calls that joined an in-flight call under the defer strategy",
			},
			[]string{"method", "route"},
		),
		dedupeCancelsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_dedupe_cancels_total",
				Help: "Total number of in-flight calls displaced under the cancel strategy",
			},
			[]string{"method", "route"},
		),
		validationFailures: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_validation_failures_total",
				Help: "Total number of schema validation failures",
			},
			[]string{"field", "route"},
		),
		hookFailures: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_hook_failures_total",
				Help: "Total number of lifecycle hook errors",
			},
			[]string{"event"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "callapi_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"type", "method", "route"},
		),
	}

	if reg, ok := registry.(*prometheus.Registry); ok {
		mc.registry = reg
	}
	return mc
}

// RecordCall records call count and duration for a resolved call.
func (mc *MetricsCollector) RecordCall(method, route string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	code := strconv.Itoa(statusCode)
	mc.callsTotal.WithLabelValues(method, route, code).Inc()
	mc.callDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// RecordCallStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordCallStart(method, route string) {
	if mc == nil {
		return
	}

	mc.callsInFlight.WithLabelValues(method, route).Inc()
}

// RecordCallEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordCallEnd(method, route string) {
	if mc == nil {
		return
	}

	mc.callsInFlight.WithLabelValues(method, route).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(method, route string, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(method, route, strconv.Itoa(attempt)).Inc()
}

// RecordDedupeJoin increments the defer-strategy share counter.
func (mc *MetricsCollector) RecordDedupeJoin(method, route string) {
	if mc == nil {
		return
	}

	mc.dedupeJoinsTotal.WithLabelValues(method, route).Inc()
}

// RecordDedupeCancel increments the cancel-strategy displacement counter.
func (mc *MetricsCollector) RecordDedupeCancel(method, route string) {
	if mc == nil {
		return
	}

	mc.dedupeCancelsTotal.WithLabelValues(method, route).Inc()
}

// RecordValidationFailure increments the validation failure counter for a field.
func (mc *MetricsCollector) RecordValidationFailure(field, route string) {
	if mc == nil {
		return
	}

	mc.validationFailures.WithLabelValues(field, route).Inc()
}

// RecordHookFailure increments the hook error counter for a lifecycle event.
func (mc *MetricsCollector) RecordHookFailure(event string) {
	if mc == nil {
		return
	}

	mc.hookFailures.WithLabelValues(event).Inc()
}

// RecordError increments the error counter by kind.
func (mc *MetricsCollector) RecordError(errorType, method, route string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, route).Inc()
}

// GetRegistry exposes the underlying prometheus registry when the collector
// was built on one.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	return mc.registry
}
