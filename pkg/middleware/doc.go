// Package middleware layers cross-cutting behavior around a store's
// Dispatch.
//
// A Middleware wraps the dispatch function, seeing every action on the
// way in and every result on the way out. Apply turns a chain of them
// into a store enhancer:
//
//	store, err := redux.New(reducer,
//	    redux.WithEnhancer(middleware.Apply(
//	        middleware.Logger[State](),
//	        middleware.Prometheus[State](),
//	        middleware.OpenTelemetry[State](),
//	    )))
//
// The first middleware in the chain is outermost: it sees actions first
// and results last. Dispatching through the API handed to a middleware
// re-enters the whole chain from the top, which is how middleware that
// synthesizes follow-up actions keeps the rest of the chain informed.
//
// # Logging
//
// Logger writes a structured line per dispatch via log/slog, with the
// action type, outcome, and duration:
//
//	middleware.Logger[State](
//	    middleware.WithLogger(logger),
//	    middleware.WithLogLevel(slog.LevelInfo),
//	)
//
// # Prometheus Metrics
//
// Prometheus counts and times dispatches:
//   - redux_actions_total: Counter of dispatches by action type and status
//   - redux_action_duration_seconds: Histogram of dispatch duration
//   - redux_action_errors_total: Counter of failures by action type and error class
//
// Expose them the usual way:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry Tracing
//
// OpenTelemetry opens a span per dispatch, records errors, and sets the
// span status. The tracer comes from the global tracer provider, so
// configure that in main() before dispatching:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package middleware
