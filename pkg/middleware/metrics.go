package middleware

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	redux "github.com/wjohnso-insight/scc-redux"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "redux").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "redux",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the dispatch path.
type metrics struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	actionErrors   *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance, created on the first
// call to Prometheus(). Later calls reuse it whatever their options, so
// each collector is registered once per process.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_total",
			Help:        "Total number of dispatched actions",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_duration_seconds",
			Help:        "Dispatch duration in seconds, reducer and listeners included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		actionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_errors_total",
			Help:        "Total number of failed dispatches",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "error_class"}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// every dispatch.
//
// Metrics collected:
//   - redux_actions_total: Counter of dispatches by action type and status
//   - redux_action_duration_seconds: Histogram of dispatch duration by action type
//   - redux_action_errors_total: Counter of failed dispatches by action type and error class
//
// The action type label is as bounded as the application's action
// vocabulary. The error class comes from the package's sentinel errors,
// never from message text, so its cardinality is fixed.
//
// Example:
//
//	store, err := redux.New(reducer,
//	    redux.WithEnhancer(middleware.Apply(
//	        middleware.Prometheus[State](middleware.WithNamespace("myapp")),
//	    )))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus[S any](opts ...MetricsOption) Middleware[S] {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(api API[S]) func(next redux.Dispatcher) redux.Dispatcher {
		return func(next redux.Dispatcher) redux.Dispatcher {
			return func(action any) (any, error) {
				typ, ok := redux.ActionType(action)
				if !ok {
					typ = "invalid"
				}

				start := time.Now()
				result, err := next(action)
				duration := time.Since(start).Seconds()

				m.actionDuration.WithLabelValues(typ).Observe(duration)

				status := "success"
				if err != nil {
					status = "error"
					m.actionErrors.WithLabelValues(typ, classifyError(err)).Inc()
				}
				m.actionsTotal.WithLabelValues(typ, status).Inc()

				return result, err
			}
		}
	}
}

// classifyError maps an error onto a small label set: one class per
// package sentinel, everything else attributed to the reducer.
func classifyError(err error) string {
	switch {
	case errors.Is(err, redux.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, redux.ErrMissingType):
		return "missing_type"
	case errors.Is(err, redux.ErrDispatchInProgress):
		return "reentrancy"
	case errors.Is(err, redux.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "reducer"
	}
}

// Collector exposes the registered metrics so applications can inspect
// them alongside their own.
type Collector struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	actionErrors   *prometheus.CounterVec
}

// GetMetrics returns the global metrics collector. Returns nil if
// Prometheus middleware has not been initialized.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		actionsTotal:   globalMetrics.actionsTotal,
		actionDuration: globalMetrics.actionDuration,
		actionErrors:   globalMetrics.actionErrors,
	}
}
